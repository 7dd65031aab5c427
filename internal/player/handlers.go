package player

import (
	"context"

	"parity-league/internal/protocol"
	"parity-league/internal/rpc"
	"parity-league/models"
)

// MountHandlers registers the player's tool surface.
func MountHandlers(server *rpc.Server, svc *Service) {
	server.Register(protocol.MethodGameInvite, func(ctx context.Context, env *models.Envelope) (interface{}, error) {
		var params models.GameInviteParams
		if perr := protocol.DecodePayload(env.Payload, &params); perr != nil {
			return nil, perr
		}
		return svc.Invite(params)
	})

	server.Register(protocol.MethodRequestMove, func(ctx context.Context, env *models.Envelope) (interface{}, error) {
		var params models.RequestMoveParams
		if perr := protocol.DecodePayload(env.Payload, &params); perr != nil {
			return nil, perr
		}
		return svc.Move(params)
	})

	server.Register(protocol.MethodRoundResult, func(ctx context.Context, env *models.Envelope) (interface{}, error) {
		var params models.RoundResultParams
		if perr := protocol.DecodePayload(env.Payload, &params); perr != nil {
			return nil, perr
		}
		return svc.RoundResult(params)
	})

	server.Register(protocol.MethodGameOver, func(ctx context.Context, env *models.Envelope) (interface{}, error) {
		var params models.GameOverParams
		if perr := protocol.DecodePayload(env.Payload, &params); perr != nil {
			return nil, perr
		}
		return svc.GameOver(params)
	})
}

// AuthHook guards the player's surface: callers must relay the token the LM
// issued to this player at registration.
func AuthHook(svc *Service) rpc.AuthFunc {
	return func(method string, env *models.Envelope) error {
		role, _, err := models.SplitSender(env.Sender)
		if err != nil {
			return protocol.NewError(protocol.KindMalformedMessage, err.Error())
		}
		if role != models.SenderRoleReferee && role != models.SenderRoleLM {
			return protocol.Errorf(protocol.KindAuthFailed, "%s may not call %s", role, method)
		}
		token := svc.Token()
		if token == "" || env.AuthToken != token {
			return protocol.NewError(protocol.KindAuthFailed, "bad match token")
		}
		return nil
	}
}

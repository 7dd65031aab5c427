package referee

import (
	"context"

	"parity-league/internal/protocol"
	"parity-league/internal/rpc"
	"parity-league/models"
)

// MountHandlers registers the referee's tool surface.
func MountHandlers(server *rpc.Server, svc *Service) {
	server.Register(protocol.MethodAssignMatch, func(ctx context.Context, env *models.Envelope) (interface{}, error) {
		var params models.AssignMatchParams
		if perr := protocol.DecodePayload(env.Payload, &params); perr != nil {
			return nil, perr
		}
		return svc.Assign(params)
	})

	server.Register(protocol.MethodCancelMatch, func(ctx context.Context, env *models.Envelope) (interface{}, error) {
		var params models.CancelMatchParams
		if perr := protocol.DecodePayload(env.Payload, &params); perr != nil {
			return nil, perr
		}
		return svc.Cancel(params)
	})

	server.Register(protocol.MethodGetMatchStatus, func(ctx context.Context, env *models.Envelope) (interface{}, error) {
		var params models.GetMatchStatusParams
		if perr := protocol.DecodePayload(env.Payload, &params); perr != nil {
			return nil, perr
		}
		return svc.MatchStatus(params.MatchID)
	})
}

// AuthHook guards the referee's surface: only the LM that issued the
// referee's token may call in, proven by presenting that token back.
func AuthHook(svc *Service) rpc.AuthFunc {
	return func(method string, env *models.Envelope) error {
		role, _, err := models.SplitSender(env.Sender)
		if err != nil {
			return protocol.NewError(protocol.KindMalformedMessage, err.Error())
		}
		if role != models.SenderRoleLM && role != models.SenderRoleOperator {
			return protocol.Errorf(protocol.KindAuthFailed, "%s may not call %s", role, method)
		}
		token := svc.LMToken()
		if token == "" || env.AuthToken != token {
			return protocol.NewError(protocol.KindAuthFailed, "bad league token")
		}
		return nil
	}
}

package referee

import (
	"context"
	"strings"

	"parity-league/engine"
	"parity-league/internal/protocol"
	"parity-league/internal/rpc"
	"parity-league/models"
)

// playerConn adapts the JSON-RPC client to the engine's PlayerConn. One
// client per player keeps the circuit breaker scoped to that endpoint, so a
// dead player never trips calls to its opponent.
type playerConn struct {
	id     string
	client *rpc.Client
}

// newPlayerConn builds the link from the dispatch-time player reference. The
// referee relays the token the LM minted for the player, which is how the
// player recognizes a legitimate match call.
func newPlayerConn(refereeID string, ref models.PlayerRef, onBreaker func(target, state string)) engine.PlayerConn {
	return &playerConn{
		id: ref.PlayerID,
		client: rpc.NewClient(rpc.ClientConfig{
			Endpoint:        strings.TrimSuffix(ref.Endpoint, "/mcp"),
			Sender:          models.Sender(models.SenderRoleReferee, refereeID),
			AuthToken:       ref.AuthToken,
			OnBreakerChange: onBreaker,
		}),
	}
}

func (p *playerConn) PlayerID() string {
	return p.id
}

func (p *playerConn) Invite(ctx context.Context, params models.GameInviteParams) (models.GameInviteResult, error) {
	var out models.GameInviteResult
	if err := p.client.Call(ctx, protocol.MethodGameInvite, params, &out); err != nil {
		return models.GameInviteResult{}, err
	}
	return out, nil
}

func (p *playerConn) RequestMove(ctx context.Context, params models.RequestMoveParams) (models.RequestMoveResult, error) {
	var out models.RequestMoveResult
	if err := p.client.Call(ctx, protocol.MethodRequestMove, params, &out); err != nil {
		return models.RequestMoveResult{}, err
	}
	return out, nil
}

func (p *playerConn) RoundResult(ctx context.Context, params models.RoundResultParams) error {
	return p.client.Call(ctx, protocol.MethodRoundResult, params, nil)
}

func (p *playerConn) GameOver(ctx context.Context, params models.GameOverParams) error {
	return p.client.Call(ctx, protocol.MethodGameOver, params, nil)
}

package league

import (
	"context"
	"strings"
	"sync"

	"parity-league/internal/protocol"
	"parity-league/internal/rpc"
	"parity-league/models"
)

// refereeClient is the production RefereeClient over JSON-RPC. The LM
// presents the token it minted for the referee, so the referee can verify
// the assignment really comes from its league.
type refereeClient struct {
	client *rpc.Client
}

// NewRefereeClientFactory builds the dispatcher's client factory. sender is
// the LM's "<role>:<id>" tag. Clients are cached per referee id so the
// circuit breaker accumulates failures across dispatches instead of
// resetting on every call; breaker transitions are published as
// breaker.open / breaker.closed events (emit may be nil).
func NewRefereeClientFactory(sender, tournamentID string, emit func(models.Event)) RefereeClientFactory {
	onBreaker := rpc.BreakerEvents(tournamentID, emit)
	var mu sync.Mutex
	clients := make(map[string]*refereeClient)
	return func(ref models.RefereeRecord) RefereeClient {
		endpoint := strings.TrimSuffix(ref.Endpoint, "/mcp")
		mu.Lock()
		defer mu.Unlock()
		if cached, ok := clients[ref.RefereeID]; ok && cached.client.Endpoint() == endpoint {
			return cached
		}
		client := &refereeClient{
			client: rpc.NewClient(rpc.ClientConfig{
				Endpoint:        endpoint,
				Sender:          sender,
				AuthToken:       ref.AuthToken,
				OnBreakerChange: onBreaker,
			}),
		}
		clients[ref.RefereeID] = client
		return client
	}
}

func (r *refereeClient) AssignMatch(ctx context.Context, params models.AssignMatchParams) (models.AssignMatchResult, error) {
	var out models.AssignMatchResult
	if err := r.client.Call(ctx, protocol.MethodAssignMatch, params, &out); err != nil {
		return models.AssignMatchResult{}, err
	}
	return out, nil
}

func (r *refereeClient) CancelMatch(ctx context.Context, params models.CancelMatchParams) (models.CancelMatchResult, error) {
	var out models.CancelMatchResult
	if err := r.client.Call(ctx, protocol.MethodCancelMatch, params, &out); err != nil {
		return models.CancelMatchResult{}, err
	}
	return out, nil
}

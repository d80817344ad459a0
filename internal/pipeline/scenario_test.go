package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"smmbridge/internal/auth"
	"smmbridge/internal/engine"
	"smmbridge/internal/limiter"
	"smmbridge/internal/messages"
	"smmbridge/internal/models"
	"smmbridge/internal/panelapi"
)

// These tests drive a whole message through the real pipeline and the
// real engine, faking only persistence and the upstream panel.

type e2eCommands struct {
	begun    []*models.CommandRecord
	finished map[string]models.CommandRecordStatus
}

func (f *e2eCommands) Begin(orderID uint, cmd models.CommandKind, requesterID, platform string) (*models.CommandRecord, error) {
	rec := &models.CommandRecord{
		ID:          fmt.Sprintf("rec-%d", len(f.begun)+1),
		OrderID:     orderID,
		Command:     cmd,
		Status:      models.RecordProcessing,
		RequesterID: requesterID,
		Platform:    platform,
	}
	f.begun = append(f.begun, rec)
	return rec, nil
}

func (f *e2eCommands) Finish(rec *models.CommandRecord, status models.CommandRecordStatus, rawResponse, errorText string) error {
	if f.finished == nil {
		f.finished = map[string]models.CommandRecordStatus{}
	}
	f.finished[rec.ID] = status
	rec.Status = status
	return nil
}

type e2ePanels struct{ panels []models.Panel }

func (f *e2ePanels) FindByID(id uint) (*models.Panel, error) {
	for i := range f.panels {
		if f.panels[i].ID == id {
			return &f.panels[i], nil
		}
	}
	return nil, nil
}

func (f *e2ePanels) FindActiveByUser(userID uint) ([]models.Panel, error) {
	return f.panels, nil
}

type e2ePolicies struct{ policy *models.SecurityPolicy }

func (f *e2ePolicies) GetOrCreate(userID uint) (*models.SecurityPolicy, error) {
	return f.policy, nil
}

type e2eServices struct{ svc *models.Service }

func (f *e2eServices) MatchByServiceName(userID uint, serviceName string) (*models.Service, error) {
	return f.svc, nil
}

type e2eAPI struct {
	actionResult panelapi.Result
	actionCalls  []panelapi.Op
}

func (f *e2eAPI) Request(ctx context.Context, panel *models.Panel, op panelapi.Op, params map[string]string) panelapi.Result {
	f.actionCalls = append(f.actionCalls, op)
	return f.actionResult
}

func (f *e2eAPI) OrderStatus(ctx context.Context, panel *models.Panel, externalID string) panelapi.Result {
	return panelapi.Result{Kind: panelapi.KindNotFound, Err: errors.New("order not found")}
}

type e2eForwarder struct{ forwarded []models.CommandKind }

func (f *e2eForwarder) Forward(ctx context.Context, order *models.Order, cmd models.CommandKind, senderID string) error {
	f.forwarded = append(f.forwarded, cmd)
	return nil
}

type scenario struct {
	pipe     *Pipeline
	mappings *fakeMappings
	orders   *fakeOrderStore
	commands *e2eCommands
	api      *e2eAPI
	fwd      *e2eForwarder
	store    limiter.Store
}

func newScenario() *scenario {
	s := &scenario{
		mappings: newFakeMappings(),
		orders:   &fakeOrderStore{byExternal: map[string]*models.Order{}},
		commands: &e2eCommands{},
		api:      &e2eAPI{actionResult: panelapi.Result{Success: true, Raw: `{"status":"success"}`}},
		fwd:      &e2eForwarder{},
		store:    limiter.NewMemory(),
	}
	chain := auth.NewChain(s.store, s.mappings, zap.NewNop())
	eng := engine.New(s.orders, s.commands,
		&e2ePanels{panels: []models.Panel{{ID: 1, UserID: 7, Name: "main", BaseURL: "https://panel.example"}}},
		&e2ePolicies{policy: models.DefaultSecurityPolicy(7)},
		&e2eServices{svc: &models.Service{Guarantee: true, RefillDays: 30}},
		s.api, s.fwd, chain, s.store, zap.NewNop())
	s.pipe = New(eng, s.mappings, s.orders, &fakeNotifier{}, zap.NewNop())
	return s
}

func (s *scenario) registerSender(panelUsername string) {
	m := &models.UserMapping{ID: 1, UserID: 7, PanelUsername: panelUsername, BotEnabled: true}
	m.SetIdentifiers([]string{"wa:628111"})
	s.mappings.byIdentifier["wa:628111"] = m
}

func (s *scenario) seedOrder(id uint, external string, status models.OrderStatus, owner string) *models.Order {
	ord := &models.Order{
		ID:               id,
		ExternalID:       external,
		UserID:           7,
		PanelID:          1,
		Status:           status,
		ServiceName:      "Instagram Followers",
		CustomerUsername: owner,
		ClaimedBy:        "wa:628111",
	}
	if status == models.OrderCompleted {
		done := time.Now().Add(-24 * time.Hour)
		ord.CompletedAt = &done
	}
	s.orders.byExternal[external] = ord
	return ord
}

func TestScenarioRefillEndToEnd(t *testing.T) {
	s := newScenario()
	s.registerSender("alice")
	s.seedOrder(42, "12345", models.OrderCompleted, "alice")

	reply := s.pipe.Handle(context.Background(), dm("12345 refill"))

	require.True(t, reply.Handled)
	assert.Equal(t, fmt.Sprintf(messages.RefillSubmitted, "12345"), reply.Text)

	require.Len(t, s.api.actionCalls, 1)
	assert.Equal(t, panelapi.OpRefill, s.api.actionCalls[0])
	require.Len(t, s.commands.begun, 1)
	assert.Equal(t, models.RecordSuccess, s.commands.finished["rec-1"])

	ttl, err := s.store.TTL(context.Background(), auth.CooldownKey(42, models.CommandRefill))
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestScenarioBulkStatusReport(t *testing.T) {
	s := newScenario()
	s.registerSender("alice")
	o1 := s.seedOrder(42, "12345", models.OrderInProgress, "alice")
	o1.Remains = 150
	s.seedOrder(43, "67890", models.OrderCompleted, "alice")

	reply := s.pipe.Handle(context.Background(), dm("12345,67890 status"))

	require.True(t, reply.Handled)
	require.Len(t, reply.Results, 2)
	assert.Contains(t, reply.Text, "2 orders")
	assert.Contains(t, reply.Text, "✅ 12345")
	assert.Contains(t, reply.Text, "✅ 67890")
	assert.Contains(t, reply.Text, "Done: 2 succeeded, 0 failed")

	// Status never touches panel actions or the audit trail.
	assert.Empty(t, s.api.actionCalls)
	assert.Empty(t, s.commands.begun)
}

func TestScenarioRepeatRefillHitsCooldown(t *testing.T) {
	s := newScenario()
	s.registerSender("alice")
	s.seedOrder(42, "12345", models.OrderCompleted, "alice")

	first := s.pipe.Handle(context.Background(), dm("12345 refill"))
	require.True(t, first.Handled)
	require.Len(t, first.Results, 1)
	require.True(t, first.Results[0].Success, first.Text)

	second := s.pipe.Handle(context.Background(), dm("refill 12345"))
	require.True(t, second.Handled)
	require.Len(t, second.Results, 1)
	assert.False(t, second.Results[0].Success)
	assert.Contains(t, second.Text, "wait")

	assert.Len(t, s.api.actionCalls, 1)
	assert.Len(t, s.commands.begun, 1)
}

func TestScenarioUnregisteredSenderPrompted(t *testing.T) {
	s := newScenario()
	s.seedOrder(42, "12345", models.OrderCompleted, "alice")

	reply := s.pipe.Handle(context.Background(), dm("12345 refill"))

	require.True(t, reply.Handled)
	assert.Equal(t, messages.NeedsRegistration, reply.Text)
	assert.Empty(t, s.api.actionCalls)
	assert.Empty(t, s.commands.begun)
}

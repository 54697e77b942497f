package joinrequests

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/tgbridge/internal/bridge"
	"github.com/flemzord/tgbridge/internal/core"
	"github.com/flemzord/tgbridge/internal/ratelimit"
	"github.com/flemzord/tgbridge/internal/session"
	"github.com/flemzord/tgbridge/internal/tlrpc/api"
)

func init() {
	core.RegisterModule(&Plugin{})
}

var (
	_ core.Configurable = (*Plugin)(nil)
	_ core.Provisioner  = (*Plugin)(nil)
	_ core.Validator    = (*Plugin)(nil)
	_ core.Starter      = (*Plugin)(nil)
	_ core.Stopper      = (*Plugin)(nil)
)

// Plugin answers chat join requests for one session.
type Plugin struct {
	config    Config
	logger    *slog.Logger
	bridge    *bridge.Bridge
	sessions  *session.Manager
	chats     chatSet
	processed *prometheus.CounterVec

	mu       sync.Mutex
	stopping bool
	remove   func()
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
}

// ModuleInfo implements core.Module.
func (p *Plugin) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "plugin.joinrequests",
		New: func() core.Module { return &Plugin{} },
	}
}

// Configure implements core.Configurable.
func (p *Plugin) Configure(node *yaml.Node) error {
	if err := node.Decode(&p.config); err != nil {
		return fmt.Errorf("joinrequests: decode config: %w", err)
	}
	p.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (p *Plugin) Provision(ctx *core.AppContext) error {
	p.config.defaults()
	p.logger = ctx.Logger

	var err error
	if p.bridge, err = core.Service[*bridge.Bridge](ctx, bridge.ServiceName); err != nil {
		return fmt.Errorf("joinrequests: %w", err)
	}
	if p.sessions, err = core.Service[*session.Manager](ctx, session.ServiceName); err != nil {
		return fmt.Errorf("joinrequests: %w", err)
	}

	var reg prometheus.Registerer
	if r, err := core.Service[prometheus.Registerer](ctx, bridge.MetricsService); err == nil {
		reg = r
	}
	if p.processed, err = newProcessedCounter(reg); err != nil {
		return fmt.Errorf("joinrequests: registering metrics: %w", err)
	}

	p.chats = newChatSet(p.config.Chats)
	p.ctx, p.cancel = context.WithCancel(context.Background())
	return nil
}

// Validate implements core.Validator.
func (p *Plugin) Validate() error {
	if err := p.config.validate(); err != nil {
		return fmt.Errorf("joinrequests: %w", err)
	}
	return nil
}

// Start implements core.Starter. The session must already exist, which
// holds once session.manager has started.
func (p *Plugin) Start() error {
	clientID, ok := p.sessions.ClientID(p.config.Session)
	if !ok {
		return fmt.Errorf("joinrequests: %w: %s", session.ErrUnknownSession, p.config.Session)
	}
	p.mu.Lock()
	p.remove = bridge.On(p.bridge.Dispatcher(), clientID, p.onJoinRequest)
	p.mu.Unlock()

	p.logger.Info("join request plugin started",
		"session", p.config.Session,
		"action", p.config.Action,
		"chats", len(p.config.Chats),
	)
	return nil
}

// onJoinRequest runs on the poll loop and hands the request off.
func (p *Plugin) onJoinRequest(_ context.Context, clientID int, ev *api.UpdateNewChatJoinRequest) error {
	if !p.chats.contains(ev.ChatID) {
		p.logger.Debug("join request for unlisted chat ignored", "chat_id", ev.ChatID)
		p.processed.WithLabelValues(outcomeIgnored).Inc()
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopping {
		return nil
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.process(p.ctx, clientID, ev.ChatID, ev.Request.UserID)
	}()
	return nil
}

func (p *Plugin) process(ctx context.Context, clientID int, chatID, userID int64) {
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	approve := p.config.Action == actionApprove
	key := ratelimit.Key{Class: p.config.RateLimitClass, Subject: strconv.FormatInt(chatID, 10)}
	_, err := bridge.Execute[api.Ok](ctx, p.bridge.Dispatcher(), clientID, &api.ProcessChatJoinRequest{
		ChatID:  chatID,
		UserID:  userID,
		Approve: approve,
	}, key)

	switch {
	case errors.Is(err, bridge.ErrRateLimited):
		p.logger.Warn("join request left pending, rate limited", "chat_id", chatID, "user_id", userID)
		p.processed.WithLabelValues(outcomeRateLimited).Inc()
		return
	case err != nil:
		p.logger.Error("processing join request failed", "chat_id", chatID, "user_id", userID, "error", err)
		p.processed.WithLabelValues(outcomeFailed).Inc()
		return
	case !approve:
		p.logger.Info("join request declined", "chat_id", chatID, "user_id", userID)
		p.processed.WithLabelValues(outcomeDeclined).Inc()
		return
	}

	p.logger.Info("join request approved", "chat_id", chatID, "user_id", userID)
	p.processed.WithLabelValues(outcomeApproved).Inc()
	if p.config.Welcome != "" {
		p.welcome(ctx, clientID, userID)
	}
}

func (p *Plugin) welcome(ctx context.Context, clientID int, userID int64) {
	key := ratelimit.Key{Class: p.config.WelcomeClass, Subject: strconv.FormatInt(userID, 10)}
	_, err := bridge.Execute[api.Message](ctx, p.bridge.Dispatcher(), clientID, &api.SendMessage{
		ChatID:              userID,
		InputMessageContent: &api.InputMessageText{Text: api.PlainText(p.config.Welcome)},
	}, key)
	if err != nil {
		p.logger.Warn("welcome message not sent", "user_id", userID, "error", err)
	}
}

// Stop implements core.Stopper.
func (p *Plugin) Stop(ctx context.Context) error {
	p.mu.Lock()
	p.stopping = true
	if p.remove != nil {
		p.remove()
		p.remove = nil
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return fmt.Errorf("joinrequests: stop: %w", ctx.Err())
	}
}

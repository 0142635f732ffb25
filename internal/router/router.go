package router

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"echo-gateway/internal/protocol"
	"echo-gateway/internal/registry"
	"echo-gateway/internal/signature"

	"github.com/hashicorp/go-multierror"
)

const invalidSignatureMessage = "Invalid auth signature"

// Messenger delivers to one connection or fans out to channels.
type Messenger interface {
	Send(ctx context.Context, connectionID string, payload []byte) error
	Broadcast(ctx context.Context, channels []string, payload []byte, skipConnectionID string) error
}

// Router handles one transport event to completion. It holds no
// per-connection state; everything lives in the registry.
type Router struct {
	signer    *signature.Signer
	registry  *registry.Registry
	messenger Messenger
	logger    *slog.Logger
}

func New(signer *signature.Signer, reg *registry.Registry, messenger Messenger, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		signer:    signer,
		registry:  reg,
		messenger: messenger,
		logger:    logger,
	}
}

// Handle dispatches an envelope by its event type. Malformed input and
// store or delivery failures are returned; rejected admissions are not.
func (r *Router) Handle(ctx context.Context, env *protocol.Envelope) error {
	if err := env.Validate(); err != nil {
		return err
	}

	connectionID := env.RequestContext.ConnectionID
	switch env.RequestContext.EventType {
	case protocol.EventTypeConnect:
		r.logger.Debug("Connection opened", "connectionID", connectionID)
		return nil
	case protocol.EventTypeDisconnect:
		return r.disconnect(ctx, connectionID)
	case protocol.EventTypeMessage:
		return r.message(ctx, connectionID, []byte(env.Body))
	default:
		return fmt.Errorf("%w: event type %q has no handler", protocol.ErrMalformedMessage, env.RequestContext.EventType)
	}
}

func (r *Router) message(ctx context.Context, connectionID string, body []byte) error {
	frame, err := protocol.ParseFrame(body)
	if err != nil {
		return err
	}

	switch frame.Kind() {
	case protocol.KindPing:
		return r.reply(ctx, connectionID, func() ([]byte, error) { return protocol.EncodePong(frame.Channel) })
	case protocol.KindWhoami:
		return r.reply(ctx, connectionID, func() ([]byte, error) { return protocol.EncodeWhoami(connectionID) })
	case protocol.KindSubscribe:
		return r.subscribe(ctx, connectionID, frame)
	case protocol.KindUnsubscribe:
		return r.unsubscribe(ctx, connectionID, frame)
	case protocol.KindClientEvent:
		return r.whisper(ctx, connectionID, frame)
	default:
		r.logger.Debug("Unrecognised event", "connectionID", connectionID, "event", frame.Event)
		return r.reply(ctx, connectionID, func() ([]byte, error) { return protocol.EncodeError("", "") })
	}
}

func (r *Router) reply(ctx context.Context, connectionID string, encode func() ([]byte, error)) error {
	payload, err := encode()
	if err != nil {
		return err
	}
	return r.messenger.Send(ctx, connectionID, payload)
}

func (r *Router) subscribe(ctx context.Context, connectionID string, frame *protocol.Frame) error {
	data, err := protocol.ParseSubscribeData(frame.Data)
	if err != nil {
		return err
	}

	channel := data.Channel
	channelData := string(data.ChannelData)
	kind := protocol.TypeOf(channel)

	if kind.RequiresAuth() && !r.signer.Verify(channel, connectionID, channelData, data.Auth) {
		r.logger.Warn("Rejected channel admission", "connectionID", connectionID, "channel", channel)
		return r.reply(ctx, connectionID, func() ([]byte, error) {
			return protocol.EncodeError(channel, invalidSignatureMessage)
		})
	}

	if kind != protocol.ChannelPresence {
		if err := r.registry.Subscribe(ctx, connectionID, channel, ""); err != nil {
			return err
		}
		return r.reply(ctx, connectionID, func() ([]byte, error) {
			return protocol.EncodeSubscriptionSucceeded(channel, nil)
		})
	}

	if err := r.registry.Subscribe(ctx, connectionID, channel, channelData); err != nil {
		return err
	}

	members, err := r.registry.MembersFor(ctx, channel)
	if err != nil {
		return err
	}
	list := make([]json.RawMessage, 0, len(members))
	for _, m := range members {
		list = append(list, protocol.MemberInfo(m.UserData))
	}

	var result *multierror.Error
	if err := r.presenceNotice(ctx, connectionID, channel, protocol.EventMemberAdded, channelData); err != nil {
		result = multierror.Append(result, err)
	}
	if err := r.reply(ctx, connectionID, func() ([]byte, error) {
		return protocol.EncodeSubscriptionSucceeded(channel, list)
	}); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

func (r *Router) unsubscribe(ctx context.Context, connectionID string, frame *protocol.Frame) error {
	data, err := protocol.ParseSubscribeData(frame.Data)
	if err != nil {
		return err
	}
	if err := r.registry.Unsubscribe(ctx, connectionID, data.Channel); err != nil {
		return err
	}
	return r.reply(ctx, connectionID, func() ([]byte, error) {
		return protocol.EncodeUnsubscriptionSucceeded(data.Channel)
	})
}

// whisper relays a client event to the channel's other subscribers.
func (r *Router) whisper(ctx context.Context, connectionID string, frame *protocol.Frame) error {
	channel := frame.ChannelName()
	if channel == "" {
		return fmt.Errorf("%w: %s without channel", protocol.ErrMalformedMessage, frame.Event)
	}

	payload, err := protocol.EncodeEvent(frame.Event, channel, frame.Data)
	if err != nil {
		return err
	}
	return r.messenger.Broadcast(ctx, []string{channel}, payload, connectionID)
}

// presenceNotice tells the other members of a presence channel that a
// member joined or left, carrying the member's user_info.
func (r *Router) presenceNotice(ctx context.Context, connectionID, channel, event, userData string) error {
	payload, err := protocol.EncodeEvent(event, channel, protocol.UserInfo(userData))
	if err != nil {
		return err
	}
	return r.messenger.Broadcast(ctx, []string{channel}, payload, connectionID)
}

func (r *Router) disconnect(ctx context.Context, connectionID string) error {
	subs, err := r.registry.ChannelsFor(ctx, connectionID)
	if err != nil {
		return err
	}

	var result *multierror.Error
	for _, sub := range subs {
		if !protocol.IsPresence(sub.Channel) {
			continue
		}
		if err := r.presenceNotice(ctx, connectionID, sub.Channel, protocol.EventMemberRemoved, sub.UserData); err != nil {
			r.logger.Error("Failed to announce member removal",
				"connectionID", connectionID,
				"channel", sub.Channel,
				"error", err)
			result = multierror.Append(result, err)
		}
	}

	if err := r.registry.ClearConnection(ctx, connectionID); err != nil {
		result = multierror.Append(result, err)
	}

	r.logger.Debug("Connection closed", "connectionID", connectionID, "channels", len(subs))
	return result.ErrorOrNil()
}

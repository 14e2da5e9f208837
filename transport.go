package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.mau.fi/whatsmeow"
	waProto "go.mau.fi/whatsmeow/binary/proto"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"
)

//////////////////////////////////////////////////////////////
// WHATSAPP TRANSPORT
//////////////////////////////////////////////////////////////

// whatsAppTransport implements Transport on top of a whatsmeow client.
type whatsAppTransport struct {
	client *whatsmeow.Client
}

func (t *whatsAppTransport) MarkRead(ctx context.Context, msg Message) error {
	return t.client.MarkRead(ctx, []types.MessageID{msg.ID}, msg.Timestamp, msg.Chat, msg.Sender.JID)
}

func (t *whatsAppTransport) SetComposing(ctx context.Context, chat types.JID, composing bool) error {
	if composing {
		return t.client.SendChatPresence(ctx, chat, types.ChatPresenceComposing, types.ChatPresenceMediaText)
	}
	return t.client.SendChatPresence(ctx, chat, types.ChatPresencePaused, types.ChatPresenceMediaText)
}

// SendText sends text as a plain new message, not quoting anything.
func (t *whatsAppTransport) SendText(ctx context.Context, chat types.JID, text string) error {
	_, err := t.client.SendMessage(ctx, chat, &waProto.Message{
		Conversation: proto.String(text),
	})
	if err != nil {
		return fmt.Errorf("send to %s: %w", chat, err)
	}
	return nil
}

// messageText extracts the text of plain and extended text messages.
func messageText(m *waProto.Message) string {
	if m.GetConversation() != "" {
		return m.GetConversation()
	}
	if m.GetExtendedTextMessage() != nil {
		return m.GetExtendedTextMessage().GetText()
	}
	return ""
}

// isPrivateChat reports whether chat is a one-to-one conversation. Groups,
// broadcast lists, status updates and newsletters all live on other servers.
func isPrivateChat(chat types.JID) bool {
	return chat.Server == types.DefaultUserServer || chat.Server == types.HiddenUserServer
}

func messageFromEvent(v *events.Message) Message {
	return Message{
		ID:   v.Info.ID,
		Chat: v.Info.Chat,
		Sender: Sender{
			ID:     SenderID(v.Info.Sender.User),
			Name:   v.Info.PushName,
			JID:    v.Info.Sender,
			AltID:  SenderID(v.Info.SenderAlt.User),
			AltJID: v.Info.SenderAlt,
		},
		Text:      messageText(v.Message),
		Private:   !v.Info.IsGroup && isPrivateChat(v.Info.Chat),
		FromSelf:  v.Info.IsFromMe,
		Timestamp: v.Info.Timestamp,
	}
}

// presenceSender is the part of the client the connect handler needs.
type presenceSender interface {
	SendPresence(ctx context.Context, state types.Presence) error
}

// eventHandler feeds whatsmeow events to the router. Chat presence (typing) is
// only shown to peers while the account is marked available, hence the
// presence announcement on every connect.
func eventHandler(ctx context.Context, client presenceSender, router *Router, log zerolog.Logger) func(interface{}) {
	return func(evt interface{}) {
		switch v := evt.(type) {
		case *events.Message:
			log.Debug().Str("chat", v.Info.Chat.String()).Msg("Got new message")
			router.Dispatch(ctx, messageFromEvent(v))
		case *events.Connected:
			if err := client.SendPresence(ctx, types.PresenceAvailable); err != nil {
				log.Warn().Err(err).Msg("Failed to mark account available")
			}
			log.Info().Msg("Connected. Listening for new messages...")
		case *events.LoggedOut:
			log.Error().Str("reason", v.Reason.String()).Msg("Device was logged out; delete the store and pair again")
		}
	}
}

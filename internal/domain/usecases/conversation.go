package usecases

import "github.com/tamsal/storefront/internal/domain/entities"

var welcomeMessages = map[entities.Language]string{
	entities.English: "Hello! I'm TamSal AI, your flooring and wall panel consultant. How can I help with your project?",
	entities.Kyrgyz:  "Саламатсызбы! Мен TamSal AI, пол жана дубал панелдери боюнча кеңешчиңизмин. Долбооруңузга кантип жардам бере алам?",
	entities.Russian: "Здравствуйте! Я TamSal AI, ваш консультант по напольным покрытиям и стеновым панелям. Чем могу помочь с вашим проектом?",
}

// WelcomeMessage is the localized greeting that opens a conversation.
func WelcomeMessage(lang entities.Language) string {
	if msg, ok := welcomeMessages[lang]; ok {
		return msg
	}
	return welcomeMessages[entities.English]
}

// Conversation is an append-only chat transcript owned by its caller.
// The opening welcome message is display-only and is not part of History.
type Conversation struct {
	welcome  entities.ChatMessage
	messages []entities.ChatMessage
}

// NewConversation starts a conversation greeted in lang.
func NewConversation(lang entities.Language) *Conversation {
	c := &Conversation{}
	c.Reset(lang)
	return c
}

// Reset drops every message and re-seeds the welcome message in lang.
func (c *Conversation) Reset(lang entities.Language) {
	c.welcome = entities.ChatMessage{Role: entities.RoleAssistant, Text: WelcomeMessage(lang)}
	c.messages = nil
}

// Append adds one message.
func (c *Conversation) Append(msg entities.ChatMessage) {
	c.messages = append(c.messages, msg)
}

// Record appends a completed exchange: the user's message, then the reply.
func (c *Conversation) Record(userText string, reply entities.ChatReply) {
	c.Append(entities.ChatMessage{Role: entities.RoleUser, Text: userText})
	c.Append(entities.ChatMessage{
		Role:      entities.RoleAssistant,
		Text:      reply.Text,
		Citations: append([]entities.Citation(nil), reply.Citations...),
	})
}

// History returns the exchanged messages, without the welcome message.
func (c *Conversation) History() []entities.ChatMessage {
	return append([]entities.ChatMessage(nil), c.messages...)
}

// Messages returns the displayed transcript, welcome message first.
func (c *Conversation) Messages() []entities.ChatMessage {
	out := make([]entities.ChatMessage, 0, len(c.messages)+1)
	out = append(out, c.welcome)
	return append(out, c.messages...)
}

// Len is the number of exchanged messages.
func (c *Conversation) Len() int {
	return len(c.messages)
}

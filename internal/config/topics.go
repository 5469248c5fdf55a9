package config

const (
	// TopicChatAnswered is the NSQ topic for completed /chat answers.
	TopicChatAnswered = "chat.answered"
)

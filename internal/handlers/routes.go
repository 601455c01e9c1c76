package handlers

import "github.com/gin-gonic/gin"

// Register mounts the authenticated REST API on r.
func Register(r gin.IRoutes, conversations *ConversationHandler, contacts *ContactHandler) {
	r.GET("/conversations", conversations.ListConversations)
	r.POST("/conversations", conversations.CreateConversation)
	r.GET("/conversations/:conversation_id", conversations.GetConversation)
	r.PATCH("/conversations/:conversation_id/metadata", conversations.UpdateConversationMetadata)
	r.GET("/conversations/:conversation_id/participants", conversations.ListParticipants)
	r.POST("/conversations/:conversation_id/participants", conversations.AddParticipant)
	r.GET("/conversations/:conversation_id/messages", conversations.ListMessages)
	r.POST("/conversations/:conversation_id/messages", conversations.SendMessage)
	r.PATCH("/messages/:message_id/metadata", conversations.UpdateMessageMetadata)
	r.POST("/messages/:message_id/read", conversations.MarkRead)

	r.PUT("/keys", contacts.StorePublicKey)
	r.GET("/contacts", contacts.ListContacts)
	r.GET("/contacts/lookup", contacts.LookupUser)
	r.POST("/contacts", contacts.AddContact)
	r.PATCH("/contacts/:contact_id", contacts.UpdateContactStatus)
	r.DELETE("/contacts/:contact_id", contacts.DeleteContact)
}

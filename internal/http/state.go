package http

import (
	"neuratalk/internal/domain"
	"neuratalk/internal/service"
)

// StateView es lo que la vista necesita para renderizar.
type StateView struct {
	Chats                []domain.Chat `json:"chats"`
	ActiveChatID         *string       `json:"active_chat_id"`
	IncludeHistory       bool          `json:"include_history"`
	IncludeSystemMessage bool          `json:"include_system_message"`
	Loading              bool          `json:"loading"`
	CredentialRequired   bool          `json:"credential_required"`
	SystemMessageEnabled bool          `json:"system_message_enabled"`
}

func buildStateView(store *service.SessionStore, chatSvc *service.ChatService) StateView {
	view := StateView{
		Chats:                store.Chats(),
		IncludeHistory:       store.IncludeHistory(),
		IncludeSystemMessage: store.IncludeSystemMessage(),
		Loading:              chatSvc.Loading(),
		CredentialRequired:   store.CredentialRequired(),
	}
	if active, ok := store.ActiveChat(); ok {
		id := active.ID
		view.ActiveChatID = &id
		view.SystemMessageEnabled = !domain.IsRestrictedModel(active.Model)
	}
	return view
}

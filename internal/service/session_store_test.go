package service

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"neuratalk/internal/domain"
)

func newTestStore() *SessionStore {
	store := NewSessionStore(NewCredentialHolder(time.Hour, nil))
	n := 0
	store.newID = func() string {
		n++
		return fmt.Sprintf("chat-%d", n)
	}
	store.now = func() time.Time { return time.Date(2024, 9, 12, 10, 0, 0, 0, time.UTC) }
	return store
}

func TestSessionStoreBootstrap_EmptyCreatesOneActiveChat(t *testing.T) {
	store := newTestStore()
	id := store.Bootstrap()

	chats := store.Chats()
	if len(chats) != 1 {
		t.Fatalf("expected exactly one chat, got %d", len(chats))
	}
	if store.ActiveChatID() != id || chats[0].ID != id {
		t.Fatalf("expected bootstrapped chat to be active, active=%q id=%q", store.ActiveChatID(), id)
	}
	if chats[0].Title != InitialChatTitle {
		t.Fatalf("expected initial title, got %q", chats[0].Title)
	}
	if chats[0].Model != domain.DefaultModelID || chats[0].SystemMessage != "" || len(chats[0].Messages) != 0 {
		t.Fatalf("unexpected defaults: %+v", chats[0])
	}

	// Idempotente con estado estable.
	if again := store.Bootstrap(); again != id || len(store.Chats()) != 1 {
		t.Fatalf("bootstrap should be a no-op at steady state")
	}
}

func TestSessionStoreBootstrap_ActivatesFirstRestoredChat(t *testing.T) {
	store := newTestStore()
	store.Restore(domain.Snapshot{
		Chats:          []domain.Chat{{ID: "a", Title: "A", Model: "gpt-4o"}, {ID: "b", Title: "B", Model: "gpt-4o"}},
		IncludeHistory: true,
	})
	if store.ActiveChatID() != "" {
		t.Fatalf("restore should not pick an active chat")
	}
	if id := store.Bootstrap(); id != "a" {
		t.Fatalf("expected first chat active, got %q", id)
	}
	if len(store.Chats()) != 2 {
		t.Fatalf("bootstrap must not synthesize when chats exist")
	}
}

func TestSessionStoreCreateChat_Titles(t *testing.T) {
	store := newTestStore()
	first := store.CreateChat()
	second := store.CreateChat()
	third := store.CreateChat()

	chats := store.Chats()
	if chats[0].Title != "New Chat" || chats[1].Title != "Chat 2" || chats[2].Title != "Chat 3" {
		t.Fatalf("unexpected titles: %q %q %q", chats[0].Title, chats[1].Title, chats[2].Title)
	}
	if store.ActiveChatID() != third {
		t.Fatalf("expected newest chat active")
	}
	if first == second || second == third {
		t.Fatalf("expected unique ids")
	}
}

func TestSessionStoreSelectChat(t *testing.T) {
	store := newTestStore()
	a := store.CreateChat()
	store.CreateChat()

	if err := store.SelectChat(a); err != nil {
		t.Fatalf("select existing chat: %v", err)
	}
	if store.ActiveChatID() != a {
		t.Fatalf("expected %q active", a)
	}
	if err := store.SelectChat("missing"); !errors.Is(err, ErrChatNotFound) {
		t.Fatalf("expected ErrChatNotFound, got %v", err)
	}
	if store.ActiveChatID() != a {
		t.Fatalf("failed select must not change active chat")
	}
}

func TestSessionStoreDeleteChat_Reassignment(t *testing.T) {
	t.Run("active deleted with others remaining", func(t *testing.T) {
		store := newTestStore()
		a := store.CreateChat()
		b := store.CreateChat()
		c := store.CreateChat()
		_ = store.SelectChat(b)

		store.DeleteChat(b)
		if store.ActiveChatID() != a {
			t.Fatalf("expected first remaining chat %q active, got %q", a, store.ActiveChatID())
		}
		chats := store.Chats()
		if len(chats) != 2 || chats[0].ID != a || chats[1].ID != c {
			t.Fatalf("unexpected remaining chats: %+v", chats)
		}
	})

	t.Run("first chat deleted while active", func(t *testing.T) {
		store := newTestStore()
		a := store.CreateChat()
		b := store.CreateChat()
		_ = store.SelectChat(a)
		store.DeleteChat(a)
		if store.ActiveChatID() != b {
			t.Fatalf("expected %q active, got %q", b, store.ActiveChatID())
		}
	})

	t.Run("inactive deleted keeps active", func(t *testing.T) {
		store := newTestStore()
		a := store.CreateChat()
		b := store.CreateChat()
		store.DeleteChat(a)
		if store.ActiveChatID() != b {
			t.Fatalf("expected %q to stay active", b)
		}
	})

	t.Run("last chat deleted", func(t *testing.T) {
		store := newTestStore()
		a := store.CreateChat()
		store.DeleteChat(a)
		if store.ActiveChatID() != "" || len(store.Chats()) != 0 {
			t.Fatalf("expected empty store with no active chat")
		}
		store.Bootstrap()
		if len(store.Chats()) != 1 || store.ActiveChatID() == "" {
			t.Fatalf("bootstrap should synthesize a default chat")
		}
	})

	t.Run("unknown id is a no-op", func(t *testing.T) {
		store := newTestStore()
		a := store.CreateChat()
		store.DeleteChat("missing")
		store.DeleteChat(a)
		store.DeleteChat(a)
		if len(store.Chats()) != 0 {
			t.Fatalf("expected empty store")
		}
	})
}

func TestSessionStoreActiveIDAlwaysResolvable(t *testing.T) {
	store := newTestStore()
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 2000; i++ {
		chats := store.Chats()
		switch rng.Intn(4) {
		case 0:
			store.CreateChat()
		case 1:
			if len(chats) > 0 {
				_ = store.SelectChat(chats[rng.Intn(len(chats))].ID)
			} else {
				_ = store.SelectChat("nothing")
			}
		case 2:
			if len(chats) > 0 {
				store.DeleteChat(chats[rng.Intn(len(chats))].ID)
			}
		case 3:
			store.DeleteChat(fmt.Sprintf("chat-%d", rng.Intn(50)))
		}

		active := store.ActiveChatID()
		if active == "" {
			if len(store.Chats()) != 0 {
				t.Fatalf("step %d: empty active id with %d chats", i, len(store.Chats()))
			}
			continue
		}
		if _, ok := store.Chat(active); !ok {
			t.Fatalf("step %d: active id %q does not resolve", i, active)
		}
	}
}

func TestSessionStoreRenameChat(t *testing.T) {
	store := newTestStore()
	id := store.CreateChat()

	for _, title := range []string{"", "   ", "\t\n"} {
		if store.RenameChat(id, title) {
			t.Fatalf("expected rename to %q to be rejected", title)
		}
		chat, _ := store.Chat(id)
		if chat.Title != InitialChatTitle {
			t.Fatalf("title changed to %q after rejected rename", chat.Title)
		}
	}

	if !store.RenameChat(id, "  Ideas  ") {
		t.Fatalf("expected rename to succeed")
	}
	chat, _ := store.Chat(id)
	if chat.Title != "Ideas" {
		t.Fatalf("expected trimmed title, got %q", chat.Title)
	}
	if store.RenameChat("missing", "x") {
		t.Fatalf("rename of unknown chat should report false")
	}
}

func TestSessionStoreAppendMessage(t *testing.T) {
	store := newTestStore()
	id := store.CreateChat()

	for i := 0; i < 3; i++ {
		ok := store.AppendMessage(id, domain.Message{ID: fmt.Sprintf("m%d", i), Role: domain.RoleUser, Content: "x"})
		if !ok {
			t.Fatalf("append %d failed", i)
		}
	}
	if store.AppendMessage("missing", domain.Message{ID: "lost"}) {
		t.Fatalf("append to unknown chat should report false")
	}

	chat, _ := store.Chat(id)
	if len(chat.Messages) != 3 || chat.Messages[0].ID != "m0" || chat.Messages[2].ID != "m2" {
		t.Fatalf("unexpected messages: %+v", chat.Messages)
	}

	// Las copias devueltas no alteran el store.
	chat.Messages[0].Content = "mutated"
	again, _ := store.Chat(id)
	if again.Messages[0].Content != "x" {
		t.Fatalf("store leaked internal message slice")
	}
}

func TestSessionStorePerChatFields(t *testing.T) {
	store := newTestStore()
	a := store.CreateChat()
	b := store.CreateChat()

	if err := store.SetModel(a, "o1-mini"); err != nil {
		t.Fatalf("set model: %v", err)
	}
	if err := store.SetModel(a, "gpt-99"); !errors.Is(err, ErrUnknownModel) {
		t.Fatalf("expected ErrUnknownModel, got %v", err)
	}
	if err := store.SetModel("missing", "gpt-4o"); !errors.Is(err, ErrChatNotFound) {
		t.Fatalf("expected ErrChatNotFound, got %v", err)
	}
	if err := store.SetSystemMessage(b, "  Be terse \n"); err != nil {
		t.Fatalf("set system message: %v", err)
	}
	if err := store.SetSystemMessage("missing", "x"); !errors.Is(err, ErrChatNotFound) {
		t.Fatalf("expected ErrChatNotFound, got %v", err)
	}

	chatA, _ := store.Chat(a)
	chatB, _ := store.Chat(b)
	if chatA.Model != "o1-mini" || chatB.Model != domain.DefaultModelID {
		t.Fatalf("model should be per chat: a=%q b=%q", chatA.Model, chatB.Model)
	}
	if chatB.SystemMessage != "Be terse" || chatA.SystemMessage != "" {
		t.Fatalf("system message should be per chat and trimmed: a=%q b=%q", chatA.SystemMessage, chatB.SystemMessage)
	}
}

func TestSessionStoreToggles(t *testing.T) {
	store := newTestStore()
	if !store.IncludeHistory() || !store.IncludeSystemMessage() {
		t.Fatalf("toggles should default to true")
	}
	store.SetIncludeHistory(false)
	store.SetIncludeSystemMessage(false)
	if store.IncludeHistory() || store.IncludeSystemMessage() {
		t.Fatalf("toggles not applied")
	}
}

func TestSessionStoreClearAll(t *testing.T) {
	store := newTestStore()
	store.CreateChat()
	store.CreateChat()
	store.SetIncludeHistory(false)
	store.SetIncludeSystemMessage(false)
	store.SetCredential("sk-live")

	store.ClearAll()
	if len(store.Chats()) != 0 || store.ActiveChatID() != "" {
		t.Fatalf("expected no chats after clear")
	}
	if !store.IncludeHistory() || !store.IncludeSystemMessage() {
		t.Fatalf("toggles should reset to true")
	}
	if _, ok := store.Credential(); ok {
		t.Fatalf("credential should be cleared")
	}

	id := store.Bootstrap()
	if len(store.Chats()) != 1 || store.ActiveChatID() != id {
		t.Fatalf("bootstrap after clear should synthesize one active chat")
	}
}

func TestSessionStoreSnapshotRestore(t *testing.T) {
	store := newTestStore()
	a := store.CreateChat()
	store.AppendMessage(a, domain.Message{ID: "m1", Role: domain.RoleUser, Content: "Hello"})
	store.SetIncludeHistory(false)
	store.SetCredential("sk-secret")

	snap := store.Snapshot()
	if len(snap.Chats) != 1 || snap.IncludeHistory || !snap.IncludeSystemMessage {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	restored := newTestStore()
	restored.Restore(snap)
	restored.Bootstrap()
	if _, ok := restored.Credential(); ok {
		t.Fatalf("credential must not travel with the snapshot")
	}
	chat, ok := restored.Chat(a)
	if !ok || len(chat.Messages) != 1 || chat.Messages[0].Content != "Hello" {
		t.Fatalf("restored chat mismatch: %+v", chat)
	}
	if restored.IncludeHistory() {
		t.Fatalf("restored toggle mismatch")
	}
}

func TestSessionStoreRestore_DropsInvalidEntries(t *testing.T) {
	store := newTestStore()
	store.Restore(domain.Snapshot{
		Chats: []domain.Chat{
			{ID: "", Title: "no id"},
			{ID: "x", Title: "first", Model: "retired-model"},
			{ID: "x", Title: "duplicate"},
		},
	})
	chats := store.Chats()
	if len(chats) != 1 || chats[0].Title != "first" {
		t.Fatalf("unexpected restored chats: %+v", chats)
	}
	if chats[0].Model != domain.DefaultModelID {
		t.Fatalf("unknown model should fall back to default, got %q", chats[0].Model)
	}
}

func TestSessionStoreSubscribe(t *testing.T) {
	store := newTestStore()
	var snaps []domain.Snapshot
	store.Subscribe(func(s domain.Snapshot) { snaps = append(snaps, s) })

	id := store.CreateChat()
	store.RenameChat(id, "   ")
	store.RenameChat(id, "Named")
	_ = store.SelectChat(id)
	store.DeleteChat("missing")

	if len(snaps) != 2 {
		t.Fatalf("expected 2 committed notifications, got %d", len(snaps))
	}
	if snaps[1].Chats[0].Title != "Named" {
		t.Fatalf("expected latest state in notification, got %+v", snaps[1])
	}
}

package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"neuratalk/internal/domain"
	"neuratalk/internal/service"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212"))

	userStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))

	assistantStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("135"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

const helpText = `Comandos:
  /new                 crear chat
  /list                listar chats
  /select <n>          activar el chat n
  /rename <titulo>     renombrar el chat activo
  /delete [n]          borrar el chat n (o el activo)
  /models              listar modelos
  /model <id>          cambiar el modelo del chat activo
  /system <texto>      fijar el system message del chat activo
  /history on|off      incluir historial en cada envio
  /sysmsg on|off       incluir system message en cada envio
  /key                 reemplazar la API key
  /logout              borrar la API key
  /clear               borrar todos los chats y ajustes
  /quit                salir`

type command struct {
	name string
	arg  string
}

// parseCommand reconoce lineas que empiezan con "/".
func parseCommand(line string) (command, bool) {
	if !strings.HasPrefix(line, "/") {
		return command{}, false
	}
	name, arg, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	return command{name: strings.ToLower(name), arg: strings.TrimSpace(arg)}, true
}

func parseToggle(arg string) (bool, error) {
	switch strings.ToLower(arg) {
	case "on", "true", "1", "si", "yes":
		return true, nil
	case "off", "false", "0", "no":
		return false, nil
	}
	return false, fmt.Errorf("valor invalido %q (usa on/off)", arg)
}

// chatAt resuelve un indice 1-based de la lista de chats.
func chatAt(chats []domain.Chat, arg string) (domain.Chat, error) {
	idx, err := strconv.Atoi(arg)
	if err != nil || idx < 1 || idx > len(chats) {
		return domain.Chat{}, fmt.Errorf("seleccion invalida %q", arg)
	}
	return chats[idx-1], nil
}

// handle ejecuta un comando; devuelve true para salir.
func (t *terminal) handle(cmd command) bool {
	switch cmd.name {
	case "quit", "exit", "salir":
		return true
	case "help":
		fmt.Fprintln(t.out, hintStyle.Render(helpText))
	case "new":
		t.store.CreateChat()
		t.printActive()
	case "list":
		t.printChats()
	case "select":
		chat, err := chatAt(t.store.Chats(), cmd.arg)
		if err != nil {
			t.fail(err)
			return false
		}
		_ = t.store.SelectChat(chat.ID)
		t.printActive()
	case "rename":
		if !t.store.RenameChat(t.store.ActiveChatID(), cmd.arg) {
			t.fail(errors.New("el titulo no puede estar vacio"))
		}
	case "delete":
		id := t.store.ActiveChatID()
		if cmd.arg != "" {
			chat, err := chatAt(t.store.Chats(), cmd.arg)
			if err != nil {
				t.fail(err)
				return false
			}
			id = chat.ID
		}
		t.store.DeleteChat(id)
		t.store.Bootstrap()
		t.printActive()
	case "models":
		for _, m := range domain.Models() {
			note := ""
			if !m.SupportsSystemPrompt {
				note = hintStyle.Render(" (sin system message)")
			}
			fmt.Fprintf(t.out, "  %s  %s%s\n", m.ID, m.DisplayName, note)
		}
	case "model":
		if err := t.store.SetModel(t.store.ActiveChatID(), cmd.arg); err != nil {
			t.fail(err)
		}
	case "system":
		chat, ok := t.store.ActiveChat()
		if !ok {
			return false
		}
		if domain.IsRestrictedModel(chat.Model) {
			t.fail(errors.New("los modelos Strawberry no admiten system message"))
			return false
		}
		if err := t.store.SetSystemMessage(chat.ID, cmd.arg); err != nil {
			t.fail(err)
		}
	case "history":
		v, err := parseToggle(cmd.arg)
		if err != nil {
			t.fail(err)
			return false
		}
		t.store.SetIncludeHistory(v)
	case "sysmsg":
		v, err := parseToggle(cmd.arg)
		if err != nil {
			t.fail(err)
			return false
		}
		t.store.SetIncludeSystemMessage(v)
	case "key":
		t.promptCredential()
	case "logout":
		t.store.ClearCredential(service.ClearReasonUser)
	case "clear":
		t.store.ClearAll()
		t.store.Bootstrap()
		t.printActive()
	default:
		t.fail(fmt.Errorf("comando desconocido /%s", cmd.name))
	}
	return false
}

func (t *terminal) printChats() {
	active := t.store.ActiveChatID()
	for i, c := range t.store.Chats() {
		marker := " "
		if c.ID == active {
			marker = "*"
		}
		fmt.Fprintf(t.out, "%s [%d] %s %s\n", marker, i+1, c.Title,
			hintStyle.Render(fmt.Sprintf("(%s, %d mensajes)", c.Model, len(c.Messages))))
	}
}

func (t *terminal) fail(err error) {
	fmt.Fprintln(t.out, errorStyle.Render("error: "+err.Error()))
}

func renderChatHeader(chat domain.Chat) string {
	return titleStyle.Render(fmt.Sprintf("--- %s [%s] ---", chat.Title, chat.Model))
}

func renderMessage(m domain.Message) string {
	switch m.Role {
	case domain.RoleUser:
		return userStyle.Render("Tu > ") + m.Content
	case domain.RoleAssistant:
		return assistantStyle.Render("IA > ") + m.Content
	default:
		return hintStyle.Render(m.Role+" > ") + m.Content
	}
}

// describeSendError traduce errores de precondicion; los de entrada se ignoran.
func describeSendError(err error) string {
	switch {
	case errors.Is(err, service.ErrEmptyMessage), errors.Is(err, service.ErrNoActiveChat):
		return ""
	case errors.Is(err, service.ErrCredentialMissing):
		return "falta la API key"
	case errors.Is(err, service.ErrSendInProgress):
		return "espera la respuesta anterior"
	}
	return err.Error()
}

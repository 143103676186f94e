package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"neuratalk/internal/config"
	"neuratalk/internal/db"
	"neuratalk/internal/llm"
	"neuratalk/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger, _ := zap.NewDevelopment(zap.IncreaseLevel(zap.WarnLevel))
	defer logger.Sync()

	snapshotRepo, closeStorage, err := db.NewSnapshotRepository(ctx, cfg, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer closeStorage()

	credentials := service.NewCredentialHolder(cfg.CredentialTTL, logger)
	credentials.AdoptEnvironment(cfg.LLMAPIKey)

	store := service.NewSessionStore(credentials)
	persister := service.NewPersister(snapshotRepo, logger)
	persister.Restore(ctx, store)
	store.Subscribe(persister.Notify)
	store.Bootstrap()

	llmClient := llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMTimeout, logger)
	chatSvc := service.NewChatService(store, llmClient, logger)

	term := &terminal{
		in:      bufio.NewReader(os.Stdin),
		out:     os.Stdout,
		store:   store,
		chatSvc: chatSvc,
	}

	persistCtx, stopPersist := context.WithCancel(context.Background())
	persistDone := make(chan struct{})
	go func() {
		persister.Run(persistCtx)
		close(persistDone)
	}()

	shutdown := func() {
		// Salir equivale a cerrar la pestaña: la credencial no sobrevive.
		store.ClearCredential(service.ClearReasonUnload)
		stopPersist()
		<-persistDone
	}

	termDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			// ReadString sigue bloqueado en stdin; se sale desde aqui.
			shutdown()
			closeStorage()
			os.Exit(0)
		case <-termDone:
		}
	}()

	term.run(ctx)
	close(termDone)
	shutdown()
}

type terminal struct {
	in      *bufio.Reader
	out     io.Writer
	store   *service.SessionStore
	chatSvc *service.ChatService
}

func (t *terminal) run(ctx context.Context) {
	fmt.Fprintln(t.out, titleStyle.Render("===== neuratalk ====="))
	fmt.Fprintln(t.out, hintStyle.Render("Escribe un mensaje o /help para ver comandos."))
	t.printActive()

	for {
		if t.store.CredentialRequired() {
			if !t.promptCredential() {
				return
			}
			continue
		}

		fmt.Fprint(t.out, promptStyle.Render("Tu > "))
		line, err := t.in.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if cmd, ok := parseCommand(line); ok {
			if quit := t.handle(cmd); quit {
				return
			}
			continue
		}

		fmt.Fprintln(t.out, hintStyle.Render("..."))
		res, err := t.chatSvc.SendMessage(ctx, line)
		if err != nil {
			if msg := describeSendError(err); msg != "" {
				fmt.Fprintln(t.out, errorStyle.Render(msg))
			}
			continue
		}
		fmt.Fprintln(t.out, renderMessage(res.AssistantMessage))
	}
}

func (t *terminal) promptCredential() bool {
	fmt.Fprint(t.out, promptStyle.Render("API key (solo en memoria) > "))
	line, err := t.in.ReadString('\n')
	if err != nil {
		return false
	}
	t.store.SetCredential(line)
	return true
}

func (t *terminal) printActive() {
	chat, ok := t.store.ActiveChat()
	if !ok {
		return
	}
	fmt.Fprintln(t.out, renderChatHeader(chat))
	for _, m := range chat.Messages {
		fmt.Fprintln(t.out, renderMessage(m))
	}
}

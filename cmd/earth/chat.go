package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/earthchat/earth/pkg/app"
	"github.com/earthchat/earth/pkg/auth"
	"github.com/earthchat/earth/pkg/chat"
	"github.com/earthchat/earth/pkg/events"
	"github.com/earthchat/earth/pkg/persona"
	"github.com/earthchat/earth/pkg/session"
)

const chatTopic = "chat"

func newChatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		RunE:  runChat,
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := newBackend()
	if err != nil {
		return err
	}
	kv, err := openKV()
	if err != nil {
		return err
	}
	defer func() { _ = kv.Close() }()
	repo, err := openAttachmentRepository()
	if err != nil {
		return err
	}
	defer func() { _ = repo.Close() }()
	personas, err := openPersonaStore()
	if err != nil {
		return err
	}

	router, err := events.NewEventRouter()
	if err != nil {
		return err
	}
	defer func() { _ = router.Close() }()

	publisher := events.NewPublisherManager()
	publisher.SubscribePublisher(chatTopic, router.Publisher)

	ui := newChatUI()
	router.AddHandler("chat-ui", chatTopic, ui.handle)

	runtime := app.NewRuntime(b, kv, repo,
		app.WithEngineOptions(
			session.WithPublisher(publisher),
			session.WithSystemPrompt(persona.DefaultInstruction),
		))
	if err := runtime.Start(&auth.StaticProvider{UserID: viper.GetString("user")}); err != nil {
		return err
	}
	defer runtime.Close()

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return router.Run(ctx)
	})
	eg.Go(func() error {
		defer stop()
		<-router.Running()
		return repl(ctx, runtime, personas, ui)
	})
	return eg.Wait()
}

// chatUI turns the event stream back into terminal output and lets the REPL
// block until the in-flight response terminates.
type chatUI struct {
	done chan struct{}
}

func newChatUI() *chatUI {
	return &chatUI{done: make(chan struct{}, 1)}
}

func (u *chatUI) handle(msg *message.Message) error {
	e, err := events.NewEventFromJSON(msg.Payload)
	if err != nil {
		log.Warn().Err(err).Msg("could not decode chat event")
		return nil
	}
	switch ev := e.(type) {
	case *events.EventPartialCompletion:
		fmt.Print(ev.Delta)
	case *events.EventFinal:
		fmt.Println()
		u.signal()
	case *events.EventError:
		fmt.Println(session.StreamErrorMessage)
		u.signal()
	case *events.EventTitleUpdated:
		log.Debug().Str("conversation_id", ev.ConversationID()).Str("title", ev.Title).Msg("title updated")
	case *events.EventNotice:
		fmt.Printf("! %s\n", ev.Message)
	}
	return nil
}

func (u *chatUI) signal() {
	select {
	case u.done <- struct{}{}:
	default:
	}
}

func (u *chatUI) waitForResponse(ctx context.Context) {
	select {
	case <-u.done:
	case <-ctx.Done():
	case <-time.After(5 * time.Minute):
		fmt.Println("\n(still waiting for a response, giving up)")
	}
}

func repl(ctx context.Context, runtime *app.Runtime, personas persona.Store, ui *chatUI) error {
	fmt.Println("EARTH chat. Type /help for commands, /quit to leave.")
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		engine := runtime.Engine()
		if engine == nil {
			return nil
		}
		if conv, ok := engine.ActiveConversation(); ok {
			fmt.Printf("[%s] > ", conv.Title)
		} else {
			fmt.Print("> ")
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			quit, err := handleCommand(ctx, engine, personas, line)
			if err != nil {
				fmt.Println(err)
			}
			if quit {
				return nil
			}
			continue
		}

		if err := engine.SendMessage(ctx, line, nil); err != nil {
			fmt.Println(err)
			continue
		}
		ui.waitForResponse(ctx)
		if ctx.Err() != nil {
			return nil
		}
	}
}

func handleCommand(ctx context.Context, engine *session.Engine, personas persona.Store, line string) (bool, error) {
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case "/quit", "/exit":
		return true, nil
	case "/help":
		printHelp()
	case "/new":
		engine.NewConversation()
	case "/list":
		snap := engine.Snapshot()
		for i, c := range snap.Conversations {
			marker := " "
			if c.ID == snap.ActiveID {
				marker = "*"
			}
			fmt.Printf("%s %2d. %s (%d messages)\n", marker, i+1, c.Title, len(c.Messages))
		}
	case "/switch":
		conv, err := conversationByNumber(engine, rest)
		if err != nil {
			return false, err
		}
		return false, engine.SelectConversation(conv.ID)
	case "/delete":
		conv, err := conversationByNumber(engine, rest)
		if err != nil {
			return false, err
		}
		return false, engine.DeleteConversation(ctx, conv.ID)
	case "/edit":
		idxStr, text, _ := strings.Cut(rest, " ")
		idx, err := strconv.Atoi(idxStr)
		if err != nil {
			return false, fmt.Errorf("usage: /edit <message#> <new text>")
		}
		conv, ok := engine.ActiveConversation()
		if !ok {
			return false, session.ErrNoActiveConversation
		}
		return false, engine.EditMessage(conv.ID, idx-1, strings.TrimSpace(text))
	case "/delmsg":
		idx, err := strconv.Atoi(rest)
		if err != nil {
			return false, fmt.Errorf("usage: /delmsg <message#>")
		}
		conv, ok := engine.ActiveConversation()
		if !ok {
			return false, session.ErrNoActiveConversation
		}
		return false, engine.DeleteMessage(conv.ID, idx-1)
	case "/regen":
		conv, ok := engine.ActiveConversation()
		if !ok {
			return false, session.ErrNoActiveConversation
		}
		idx := len(conv.Messages) - 1
		if rest != "" {
			n, err := strconv.Atoi(rest)
			if err != nil {
				return false, fmt.Errorf("usage: /regen [message#]")
			}
			idx = n - 1
		}
		return false, engine.RegenerateResponse(ctx, conv.ID, idx)
	case "/attach":
		if rest == "" {
			return false, fmt.Errorf("usage: /attach <path>")
		}
		att, err := chat.NewAttachmentFromFile(rest)
		if err != nil {
			return false, err
		}
		att = engine.AttachPending(att)
		fmt.Printf("attached %s (%s, %d bytes)\n", att.Name, att.MediaType, att.Size)
	case "/attachments":
		for _, a := range engine.PendingAttachments() {
			fmt.Printf("%s  %s (%s, %d bytes)\n", a.ID, a.Name, a.MediaType, a.Size)
		}
	case "/rmattach":
		if rest == "" {
			return false, fmt.Errorf("usage: /rmattach <id>")
		}
		engine.RemoveAttachment(ctx, rest)
	case "/brain":
		return false, applyBrain(ctx, engine, personas, rest)
	default:
		return false, fmt.Errorf("unknown command %s, try /help", cmd)
	}
	return false, nil
}

// applyBrain sets the system instruction, either from a saved persona / built-in
// template (by id) or verbatim. An empty argument resets to the default.
func applyBrain(ctx context.Context, engine *session.Engine, personas persona.Store, arg string) error {
	if arg == "" {
		engine.SetSystemPrompt(persona.DefaultInstruction)
		fmt.Println("brain reset to default, starting a fresh conversation")
		return nil
	}
	if p, ok, err := personas.Get(ctx, arg); err == nil && ok {
		engine.SetSystemPrompt(p.Instruction)
		if err := personas.MarkUsed(ctx, p.ID); err != nil {
			log.Warn().Err(err).Msg("could not mark persona as used")
		}
		fmt.Printf("brain set to %q, starting a fresh conversation\n", p.Name)
		return nil
	}
	for _, t := range persona.Templates() {
		if t.ID == arg {
			engine.SetSystemPrompt(t.Instruction)
			fmt.Printf("brain set to %q, starting a fresh conversation\n", t.Name)
			return nil
		}
	}
	engine.SetSystemPrompt(arg)
	fmt.Println("brain set, starting a fresh conversation")
	return nil
}

func conversationByNumber(engine *session.Engine, arg string) (chat.Conversation, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return chat.Conversation{}, fmt.Errorf("usage: expected a conversation number, see /list")
	}
	snap := engine.Snapshot()
	if n < 1 || n > len(snap.Conversations) {
		return chat.Conversation{}, session.ErrNoSuchConversation
	}
	return snap.Conversations[n-1], nil
}

func printHelp() {
	fmt.Println(`Commands:
  /new                 start a new conversation
  /list                list conversations
  /switch <n>          switch to conversation n
  /delete <n>          delete conversation n
  /edit <n> <text>     edit message n in the active conversation
  /delmsg <n>          delete message n in the active conversation
  /regen [n]           regenerate the last (or n-th) model response
  /attach <path>       attach a file to the next message
  /attachments         list pending attachments
  /rmattach <id>       remove a pending attachment
  /brain [id or text]  set the system instruction (empty resets)
  /quit                exit`)
}

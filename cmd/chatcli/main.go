// Command chatcli is a terminal client for chathub.
//
//	chatcli -email ada@example.com -password ...
//
// Lines you type are sent to the current view. Commands:
//
//	/users           list people you can message
//	/to <email|id>   switch to a private conversation
//	/global          switch back to the global room
//	/quit
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lalith-99/chathub/internal/chat"
	"github.com/lalith-99/chathub/internal/chatclient"
	"github.com/lalith-99/chathub/internal/config"
	"github.com/lalith-99/chathub/internal/models"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type session struct {
	client *chatclient.Client
	me     *models.User
	out    io.Writer

	mu    sync.Mutex
	view  chatclient.View
	title string
}

func run() error {
	server := flag.String("server", config.GetEnv("CHATHUB_SERVER", "http://localhost:8081"), "hub base URL")
	email := flag.String("email", "", "account email")
	password := flag.String("password", config.GetEnv("CHATHUB_PASSWORD", ""), "account password (or CHATHUB_PASSWORD)")
	signup := flag.Bool("signup", false, "create the account first")
	first := flag.String("first", "", "first name, with -signup")
	last := flag.String("last", "", "last name, with -signup")
	flag.Parse()

	if *email == "" || *password == "" {
		return errors.New("-email and -password are required")
	}

	ctx := context.Background()
	var (
		token string
		err   error
	)
	if *signup {
		token, err = chatclient.Signup(ctx, *server, *email, *password, *first, *last)
	} else {
		token, err = chatclient.Login(ctx, *server, *email, *password)
	}
	if err != nil {
		return err
	}

	client, err := chatclient.New(*server, token)
	if err != nil {
		return err
	}
	me, err := client.Me(ctx)
	if err != nil {
		return err
	}
	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Close()

	s := &session{client: client, me: me, out: os.Stdout, view: chatclient.GlobalView(), title: "global"}
	fmt.Fprintf(s.out, "signed in as %s\n", me.DisplayName())
	if err := s.showHistory(ctx); err != nil {
		fmt.Fprintf(s.out, "! %v\n", err)
	}

	go s.receive()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if quit := s.handleLine(ctx, line); quit {
			return nil
		}
	}
	return scanner.Err()
}

func (s *session) current() (chatclient.View, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view, s.title
}

func (s *session) switchTo(v chatclient.View, title string) {
	s.mu.Lock()
	s.view, s.title = v, title
	s.mu.Unlock()
}

func (s *session) handleLine(ctx context.Context, line string) bool {
	cmd, arg, _ := strings.Cut(line, " ")
	switch cmd {
	case "/quit":
		return true
	case "/global":
		s.switchTo(chatclient.GlobalView(), "global")
		if err := s.showHistory(ctx); err != nil {
			fmt.Fprintf(s.out, "! %v\n", err)
		}
	case "/users":
		users, err := s.client.Users(ctx)
		if err != nil {
			fmt.Fprintf(s.out, "! %v\n", err)
			return false
		}
		for _, u := range users {
			fmt.Fprintf(s.out, "  %s  <%s>  %s\n", u.DisplayName(), u.Email, u.ID)
		}
	case "/to":
		peer, err := s.findUser(ctx, strings.TrimSpace(arg))
		if err != nil {
			fmt.Fprintf(s.out, "! %v\n", err)
			return false
		}
		s.switchTo(chatclient.ConversationWith(peer.ID), peer.DisplayName())
		if err := s.showHistory(ctx); err != nil {
			fmt.Fprintf(s.out, "! %v\n", err)
		}
	default:
		s.send(line)
	}
	return false
}

func (s *session) send(body string) {
	view, _ := s.current()
	var err error
	if peer, ok := view.Peer(); ok {
		err = s.client.SendPrivate(peer, body)
	} else {
		err = s.client.SendGlobal(body)
	}
	if err != nil {
		fmt.Fprintf(s.out, "! %v\n", err)
	}
}

func (s *session) findUser(ctx context.Context, who string) (*models.User, error) {
	if who == "" {
		return nil, errors.New("usage: /to <email|id>")
	}
	users, err := s.client.Users(ctx)
	if err != nil {
		return nil, err
	}
	id, idErr := uuid.Parse(who)
	for i := range users {
		u := &users[i]
		if (idErr == nil && u.ID == id) || strings.EqualFold(u.Email, who) {
			return u, nil
		}
	}
	return nil, fmt.Errorf("no user %q", who)
}

func (s *session) showHistory(ctx context.Context) error {
	view, title := s.current()
	var (
		msgs []chatclient.Message
		err  error
	)
	if peer, ok := view.Peer(); ok {
		msgs, err = s.client.Conversation(ctx, peer, 0)
	} else {
		msgs, err = s.client.GlobalHistory(ctx, 0)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(s.out, "── %s ──\n", title)
	now := time.Now()
	for _, m := range msgs {
		ev := chatclient.HistoryEvent(m)
		if view.Admits(ev) {
			s.printMessage(ev.Message, now)
		}
	}
	return nil
}

func (s *session) receive() {
	for {
		ev, err := s.client.Next()
		if err != nil {
			fmt.Fprintf(s.out, "! disconnected: %v\n", err)
			os.Exit(1)
		}
		view, _ := s.current()
		if !view.Admits(ev) {
			continue
		}
		switch ev.Type {
		case chat.EventMessageGlobal, chat.EventMessagePrivate:
			s.printMessage(ev.Message, time.Now())
		case chat.EventSendError:
			fmt.Fprintf(s.out, "! %s\n", ev.Reason)
		case chat.EventUserJoined:
			fmt.Fprintf(s.out, "* %s joined the chat\n", ev.DisplayName)
		case chat.EventUserLeft:
			fmt.Fprintf(s.out, "* %s left the chat\n", ev.DisplayName)
		}
	}
}

func (s *session) printMessage(m *chatclient.Message, now time.Time) {
	who := m.SenderName
	if m.SenderID == s.me.ID {
		who = "you"
	}
	fmt.Fprintf(s.out, "[%s] %s: %s\n", chatclient.FormatAge(m.CreatedAt, now), who, m.Body)
}

// aaelink-rt - Command line client for the AAELink realtime gateway
package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Dry1ceD7/AAELink-sub002/clients/go/realtime"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	baseURL := os.Getenv("AAELINK_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	userID := os.Getenv("AAELINK_USER")
	if userID == "" {
		userID = "cli-" + fmt.Sprint(os.Getpid())
	}

	cmd := os.Args[1]

	switch cmd {
	case "tail":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: aaelink-rt tail <channel>")
			os.Exit(1)
		}
		tail(baseURL, userID, os.Args[2])

	case "say":
		if len(os.Args) < 4 {
			fmt.Fprintln(os.Stderr, "Usage: aaelink-rt say <channel> <message>")
			os.Exit(1)
		}
		say(baseURL, userID, os.Args[2], strings.Join(os.Args[3:], " "))

	case "members":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: aaelink-rt members <channel>")
			os.Exit(1)
		}
		members(baseURL, userID, os.Args[2])

	case "help", "--help", "-h":
		usage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

// tail joins a channel and prints everything that happens in it. Lines typed
// on stdin are sent as messages.
func tail(baseURL, userID, channel string) {
	client, err := realtime.Dial(baseURL, userID, realtime.Handlers{
		OnMessage: func(env realtime.Envelope, d realtime.MessageData) {
			fmt.Printf("[%s] %s: %s\n", stamp(env.Timestamp), env.UserID, d.Body)
		},
		OnTyping: func(env realtime.Envelope, d realtime.TypingData) {
			if d.Active {
				fmt.Printf("-- %s is typing\n", env.UserID)
			}
		},
		OnPresence: func(env realtime.Envelope, d realtime.PresenceData) {
			fmt.Printf("-- %s %s %s\n", d.UserID, d.Action, d.ChannelID)
		},
		OnReaction: func(env realtime.Envelope, d realtime.ReactionData) {
			fmt.Printf("-- %s reacted %s to %s\n", env.UserID, d.Emoji, d.MessageID)
		},
		OnError: func(env realtime.Envelope, d realtime.ErrorData) {
			fmt.Fprintf(os.Stderr, "!! %s: %s\n", d.Code, d.Message)
		},
		OnClose: func(err error) {
			if err != nil {
				fmt.Fprintf(os.Stderr, "connection lost: %v\n", err)
			}
			os.Exit(0)
		},
	}, nil)
	exitOnError(err)
	defer client.Close()

	exitOnError(client.Join(channel))
	fmt.Printf("joined #%s as %s (ctrl-c to quit)\n", channel, userID)

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if err := client.SendMessage(channel, line, ""); err != nil {
				fmt.Fprintf(os.Stderr, "send failed: %v\n", err)
				return
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
}

// say connects, posts one message, and disconnects.
func say(baseURL, userID, channel, message string) {
	echoed := make(chan struct{})
	client, err := realtime.Dial(baseURL, userID, realtime.Handlers{
		OnMessage: func(env realtime.Envelope, d realtime.MessageData) {
			if env.UserID == userID && d.Body == message {
				close(echoed)
			}
		},
	}, nil)
	exitOnError(err)
	defer client.Close()

	exitOnError(client.Join(channel))
	exitOnError(client.SendMessage(channel, message, ""))

	// Wait for the echo so we know the gateway accepted it.
	select {
	case <-echoed:
	case <-time.After(5 * time.Second):
		fmt.Fprintln(os.Stderr, "no echo within 5s")
		os.Exit(1)
	}
}

// members prints the current live member list of a channel.
func members(baseURL, userID, channel string) {
	got := make(chan realtime.MembersData, 1)
	client, err := realtime.Dial(baseURL, userID, realtime.Handlers{
		OnMembers: func(env realtime.Envelope, d realtime.MembersData) {
			got <- d
		},
	}, nil)
	exitOnError(err)
	defer client.Close()

	exitOnError(client.RequestMembers(channel))

	select {
	case d := <-got:
		for _, m := range d.Members {
			fmt.Println(m)
		}
	case <-time.After(5 * time.Second):
		fmt.Fprintln(os.Stderr, "no reply within 5s")
		os.Exit(1)
	}
}

func stamp(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return t.Local().Format("15:04:05")
}

func usage() {
	fmt.Println(`aaelink-rt - AAELink realtime gateway client

Usage: aaelink-rt <command> [options]

Commands:
  tail <channel>           Join a channel and stream events; stdin sends
  say <channel> <message>  Post one message and exit
  members <channel>        Print the live member list
  help                     Show this help

Environment:
  AAELINK_URL   Gateway base URL (default http://localhost:8080)
  AAELINK_USER  User identity (default cli-<pid>)`)
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

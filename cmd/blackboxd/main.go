package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/gorilla/websocket"
	flag "github.com/spf13/pflag"

	"github.com/roadwatch/blackbox"
	"github.com/roadwatch/blackbox/internal/logging"
	"github.com/roadwatch/blackbox/internal/storage"
)

var log = logging.DefaultLogger.WithTag("blackboxd")

// Populated via -ldflags="-X ...". See Makefile.
var GitRevisionId = "dev"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

var channels []*blackbox.Channel

// stateEvent is one update pushed to the viewer.
type stateEvent struct {
	Channel  string                `json:"channel"`
	Label    string                `json:"label"`
	Position string                `json:"position"`
	State    blackbox.ChannelState `json:"state"`
	Buffer   blackbox.BufferStatus `json:"buffer"`
}

// command is an inbound viewer request.
type command struct {
	Cmd     string  `json:"cmd"`
	Channel string  `json:"channel"`
	To      float64 `json:"to"`
}

func version() {
	fmt.Println("blackboxd", GitRevisionId)
}

// positionFor guesses the camera position from the recording's filename.
// Dashcams name per-camera files with a position keyword.
func positionFor(path string) blackbox.CameraPosition {
	name := strings.ToLower(filepath.Base(path))
	switch {
	case strings.Contains(name, "rear"):
		return blackbox.PositionRear
	case strings.Contains(name, "left"):
		return blackbox.PositionLeft
	case strings.Contains(name, "right"):
		return blackbox.PositionRight
	case strings.Contains(name, "interior"), strings.Contains(name, "cabin"):
		return blackbox.PositionInterior
	default:
		return blackbox.PositionFront
	}
}

func findChannel(id string) *blackbox.Channel {
	for _, ch := range channels {
		if string(ch.Identity()) == id {
			return ch
		}
	}
	return nil
}

// websocketHandler streams every channel's state and buffer status to the
// viewer and applies seek/stop commands sent back.
func websocketHandler(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("Websocket upgrade failed: %v", err)
		return
	}
	defer ws.Close()

	// Writes come from one goroutine per channel subscription.
	var writeMu sync.Mutex
	push := func(ch *blackbox.Channel, state blackbox.ChannelState) error {
		desc := ch.Descriptor()
		event := stateEvent{
			Channel:  string(ch.Identity()),
			Label:    desc.Label,
			Position: desc.Position.String(),
			State:    state,
			Buffer:   ch.BufferStatus(),
		}
		writeMu.Lock()
		defer writeMu.Unlock()
		return ws.WriteJSON(event)
	}

	var wg sync.WaitGroup
	subs := make(map[*blackbox.Channel]<-chan blackbox.ChannelState)
	for _, ch := range channels {
		sub := ch.SubscribeState(16)
		subs[ch] = sub

		wg.Add(1)
		go func(ch *blackbox.Channel, sub <-chan blackbox.ChannelState) {
			defer wg.Done()
			for state := range sub {
				if err := push(ch, state); err != nil {
					return
				}
			}
		}(ch, sub)
	}

	for {
		var cmd command
		if err := ws.ReadJSON(&cmd); err != nil {
			break
		}
		ch := findChannel(cmd.Channel)
		if ch == nil {
			log.Warn("Unknown channel in %s command: %s", cmd.Cmd, cmd.Channel)
			continue
		}
		switch cmd.Cmd {
		case "seek":
			if err := ch.Seek(cmd.To); err != nil {
				log.Warn("Seek %s to %.3fs: %v", cmd.Channel, cmd.To, err)
			}
		case "stop":
			ch.Stop()
		default:
			log.Warn("Unknown command: %s", cmd.Cmd)
		}
	}

	// Unsubscribing closes each subscription channel, which in turn ends
	// the forwarding goroutines.
	for ch, sub := range subs {
		ch.UnsubscribeState(sub)
	}
	wg.Wait()
}

func main() {
	flag.Parse()

	if flagHelp {
		help()
		os.Exit(0)
	}
	if flagVersion {
		version()
		os.Exit(0)
	}

	paths, err := storage.ListVideoFiles(flagDir)
	if err != nil {
		log.Error("Scanning %s: %v", flagDir, err)
		os.Exit(1)
	}
	if len(paths) == 0 {
		log.Error("No recordings found under %s", flagDir)
		os.Exit(1)
	}

	for _, path := range paths {
		desc := blackbox.ChannelDescriptor{
			Position: positionFor(path),
			Locator:  path,
			Label:    filepath.Base(path),
		}
		ch := blackbox.NewChannel(desc)
		channels = append(channels, ch)

		if err := ch.Initialize(); err != nil {
			// Channel stays registered so the viewer sees its Error state.
			log.Warn("Initialize %s: %v", path, err)
			continue
		}
		if err := ch.StartDecoding(); err != nil {
			log.Warn("Start %s: %v", path, err)
		}
	}

	http.HandleFunc("/ws", websocketHandler)

	go func() {
		log.Info("Listening on %s", flagListen)
		if err := http.ListenAndServe(flagListen, nil); err != nil {
			log.Error("ListenAndServe: %v", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Info("Shutting down")
	for _, ch := range channels {
		ch.Close()
	}
}

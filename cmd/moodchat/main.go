package main

import (
	"bufio"
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"moodchat/internal/config"
	"moodchat/internal/engine"
	"moodchat/internal/message"
	"moodchat/internal/mood"
	"moodchat/internal/remote"
	"moodchat/internal/settings"
	"moodchat/internal/ui"
)

func main() {
	cfg, err := config.LoadClient(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	sets, err := settings.Load(cfg.SettingsFile)
	if err != nil {
		log.Fatalf("settings: %v", err)
	}
	role := message.Role(cfg.Role)
	sets.Role = role
	sets.ServerURL = cfg.ServerURL

	room := mood.Room{Title: "Chat", Greeting: "hi"}
	moodName := cfg.Mood
	if moodName == "" {
		moodName = sets.LastMood
	}
	if moodName != "" {
		m, err := mood.Parse(moodName)
		if err != nil {
			log.Fatalf("mood: %v", err)
		}
		room = m.Room()
		sets.LastMood = m.String()
	}
	if err := settings.Save(cfg.SettingsFile, sets); err != nil {
		log.Printf("settings save failed: %v", err)
	}

	rs := remote.Open(cfg.ServerURL, cfg.Timeout)
	defer rs.Close()

	labels := ui.Labels(sets.DisplayNames)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.UseTUI {
		runTUI(ctx, cancel, rs, role, labels, room, cfg)
		return
	}
	runCLI(ctx, cancel, rs, role, labels, room, cfg)
}

func runCLI(ctx context.Context, cancel context.CancelFunc, rs *remote.Store, role message.Role, labels ui.Labels, room mood.Room, cfg *config.ClientConfig) {
	var eng *engine.Engine
	resolve := func(id int64) (message.Message, bool) {
		if eng == nil {
			return message.Message{}, false
		}
		return eng.ResolveParent(id)
	}
	display := ui.NewCLIDisplay(os.Stdout, ui.ShouldUseColor(cfg.NoColor), role, labels, resolve)
	eng = engine.New(rs, role, engine.Options{
		Uploader: rs,
		Renderer: display,
		Timeout:  cfg.Timeout,
	})

	if err := eng.Start(ctx); err != nil {
		log.Fatalf("start: %v", err)
	}
	defer eng.Stop()

	display.System(room.Title + ": " + room.Greeting)
	display.System(composeHelp)

	comp := newComposer(eng, display.System, nil)

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		cancel()
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if comp.handle(ctx, scanner.Text()) {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func runTUI(ctx context.Context, cancel context.CancelFunc, rs *remote.Store, role message.Role, labels ui.Labels, room mood.Room, cfg *config.ClientConfig) {
	var comp *composer
	var eng *engine.Engine
	resolve := func(id int64) (message.Message, bool) {
		if eng == nil {
			return message.Message{}, false
		}
		return eng.ResolveParent(id)
	}
	display := ui.NewTUIDisplay(room.Title, role, labels, resolve, func(line string) {
		if comp.handle(ctx, line) {
			cancel()
		}
	})
	eng = engine.New(rs, role, engine.Options{
		Uploader: rs,
		Renderer: display,
		Timeout:  cfg.Timeout,
	})
	comp = newComposer(eng, display.System, func(sending bool) {
		display.SetInputEnabled(!sending)
	})

	if err := eng.Start(ctx); err != nil {
		log.Fatalf("start: %v", err)
	}
	defer eng.Stop()

	display.System(room.Greeting)
	if err := display.Run(ctx); err != nil {
		log.Printf("tui error: %v", err)
	}
}

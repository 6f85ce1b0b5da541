package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"light-chat-engine/chat"
	"light-chat-engine/db"
	"light-chat-engine/store"
	"light-chat-engine/utils"
	"light-chat-engine/web"
)

var (
	version = "0.1.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file")
	provider := flag.String("provider", "openai", "LLM provider to chat with")
	model := flag.String("model", "", "Model override (default from config)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("Light Chat Engine v%s\n", version)
		os.Exit(0)
	}

	// Initialize logger
	logger, err := utils.NewLogger(utils.GetLogPath())
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	logger.Info("Starting Light Chat Engine v%s", version)

	// Load or create default configuration
	var config *utils.Config
	actualConfigPath := *configPath
	if actualConfigPath == "" {
		actualConfigPath, err = utils.EnsureDefaultConfig()
		if err != nil {
			logger.Error("Failed to create default config: %v", err)
			os.Exit(1)
		}
		logger.Info("Using config file: %s", actualConfigPath)
	}
	config, err = utils.LoadConfig(actualConfigPath)
	if err != nil {
		logger.Error("Failed to load config: %v", err)
		os.Exit(1)
	}

	// Initialize database
	database, err := db.New(config.Data.DBPath)
	if err != nil {
		logger.Error("Failed to initialize database: %v", err)
		os.Exit(1)
	}
	defer database.Close()
	logger.Info("Database initialized: %s", config.Data.DBPath)

	// Initialize blob store
	blobs, err := store.New(config.Data.BlobDir)
	if err != nil {
		logger.Error("Failed to initialize blob store: %v", err)
		os.Exit(1)
	}

	// Web collaborators
	var searchEngine web.SearchEngine
	if config.Search.Enabled {
		searchEngine = web.NewDuckDuckGoEngine(config.Search.EngineBaseURL)
	}
	fetcher := web.NewFetcher(
		time.Duration(config.Search.FetchTimeoutSec)*time.Second,
		config.Search.FetchMaxBytes,
	)

	engine := chat.NewEngine(database, blobs, config, logger, searchEngine, fetcher)

	conv, err := database.CreateConversation("")
	if err != nil {
		logger.Error("Failed to create conversation: %v", err)
		os.Exit(1)
	}

	logger.Info("Conversation %d started with provider %s", conv.ID, *provider)
	runREPL(engine, conv.ID, *provider, *model, config.Search.Enabled)
	logger.Info("Application stopped")
}

// runREPL drives the pipeline from stdin and prints events as they arrive.
// Commands: /stop cancels the in-flight generation, /title regenerates the
// conversation title, /quit exits.
func runREPL(engine *chat.Engine, conversationID int64, provider, model string, searchEnabled bool) {
	events, unsubscribe := engine.Subscribe()
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		printEvents(events)
	}()

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("Type a message, /stop, /title or /quit.")
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			continue
		case line == "/quit":
			engine.Stop(conversationID)
			unsubscribe()
			<-done
			return
		case line == "/stop":
			if !engine.Stop(conversationID) {
				fmt.Println("nothing to stop")
			}
		case line == "/title":
			title, err := engine.GenerateTitle(context.Background(), conversationID)
			if err != nil {
				fmt.Printf("title generation failed: %v\n", err)
			} else {
				fmt.Printf("title: %s\n", title)
			}
		default:
			_, err := engine.Send(conversationID, line, chat.SendOptions{
				Provider:      provider,
				Model:         model,
				SearchEnabled: searchEnabled,
			})
			if err != nil {
				fmt.Printf("send failed: %v\n", err)
			}
		}
	}
}

func printEvents(events <-chan chat.Event) {
	for ev := range events {
		switch ev.Kind {
		case chat.EventDecisionFinished:
			if ev.Decision != nil {
				fmt.Printf("\n[search needed: %v] %s\n", ev.Decision.SearchNeeded, ev.Decision.Reasoning)
			}
		case chat.EventSearchStarted:
			if ev.SearchResult != nil {
				fmt.Printf("[searching: %s]\n", ev.SearchResult.Query)
			}
		case chat.EventFetchProgress:
			if ev.FetchResult != nil {
				fmt.Printf("[fetched %s: %s]\n", ev.FetchResult.URL, ev.FetchResult.Status)
			}
		case chat.EventReasoningStarted:
			fmt.Print("[thinking] ")
		case chat.EventStreamChunk:
			if ev.Chunk != "" {
				fmt.Print(ev.Chunk)
			}
		case chat.EventGenerationComplete:
			if ev.Err != "" {
				fmt.Printf("\n[generation failed: %s]\n", ev.Err)
			} else if ev.Cancelled {
				fmt.Println("\n[generation cancelled]")
			} else {
				fmt.Println("\n[done]")
			}
		case chat.EventGenerationStopped:
			fmt.Println("\n[stopping]")
		case chat.EventTitleUpdated:
			fmt.Printf("[conversation titled: %s]\n", ev.Title)
		}
	}
}

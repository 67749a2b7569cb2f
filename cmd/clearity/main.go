package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"clearity/internal/config"
	"clearity/internal/gateway"
	"clearity/internal/logging"
	"clearity/internal/pipeline"
	"clearity/internal/store"
	"clearity/internal/types"
)

var (
	// Global flags
	verbose    bool
	configPath string
	userID     string
	asJSON     bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "clearity",
	Short: "Clearity - an AI clarity engine for people who feel mentally overloaded",
	Long: `Clearity turns scattered thoughts into a living mind map.

Each message you send is analyzed for emotional context, synthesized into a
graph of projects and their connections, reasoned over for issues and root
causes, and answered with a short, paced reply plus concrete micro-tasks.

Run without arguments to start an interactive chat session.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Logging.Debug = true
		}
		if err := logging.Initialize(cfg.Logging.Debug); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, args)
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat [session-id]",
	Short: "Start or continue an interactive session",
	Long: `Starts an interactive chat. With no argument a new session is created;
pass a session id to continue an existing one.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChat,
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List your sessions, most recently active first",
	RunE:  runSessions,
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Show resumable mind maps from previous sessions",
	Long: `Lists the newest snapshot of each mind map across your sessions, with
their unresolved issues, so you can pick up where you left off.`,
	RunE: runResume,
}

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks",
}

var taskDoneCmd = &cobra.Command{
	Use:   "done [task-id]",
	Short: "Mark a task completed",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskDone,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&userID, "user", "local", "User id (defaults to the local single-user profile)")
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "Print full reply payloads as JSON")

	taskCmd.AddCommand(taskDoneCmd)
	rootCmd.AddCommand(chatCmd, sessionsCmd, resumeCmd, taskCmd)
}

// open wires the store and pipeline from the loaded config. Callers must
// close the returned store.
func open() (*store.LocalStore, *pipeline.Orchestrator, error) {
	st, err := store.NewLocalStore(cfg.Database.Path)
	if err != nil {
		return nil, nil, err
	}
	timeout, err := cfg.LLMTimeout()
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	llm := gateway.New(gateway.Config{
		BaseURL:   cfg.LLM.BaseURL,
		APIKey:    cfg.LLM.APIKey,
		FastModel: cfg.LLM.FastModel,
		DeepModel: cfg.LLM.DeepModel,
		Timeout:   timeout,
		SiteURL:   cfg.LLM.SiteURL,
		SiteName:  cfg.LLM.SiteName,
	})
	return st, pipeline.New(llm, st), nil
}

func runChat(cmd *cobra.Command, args []string) error {
	st, orch, err := open()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := st.EnsureUser(ctx, userID); err != nil {
		return err
	}

	var sessionID string
	if len(args) == 1 {
		sess, err := st.GetSession(ctx, args[0])
		if err != nil {
			return err
		}
		sessionID = sess.ID
		fmt.Printf("Continuing session %s\n", sessionID)
	} else {
		sess, err := st.CreateSession(ctx, userID)
		if err != nil {
			return err
		}
		sessionID = sess.ID
		fmt.Printf("Started session %s\n", sessionID)
	}
	fmt.Println("Type your message, or /quit to exit.")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			break
		}

		payload, err := orch.ProcessMessage(ctx, sessionID, userID, line)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		printPayload(payload)
	}
	return scanner.Err()
}

func printPayload(payload *types.ReplyPayload) {
	if asJSON {
		out, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return
		}
		fmt.Println(string(out))
		return
	}

	fmt.Println()
	fmt.Println(payload.Message)
	if payload.MindMap != nil && len(payload.MindMap.Projects) > 0 {
		fmt.Printf("\n[%s]\n", payload.MindMap.MapName)
		for _, p := range payload.MindMap.Projects {
			fmt.Printf("  - %s (%s)\n", p.Label, p.Emotion)
		}
	}
	if len(payload.SuggestedTasks) > 0 {
		fmt.Println("\nSuggested next steps:")
		for _, t := range payload.SuggestedTasks {
			fmt.Printf("  [%s] %s", t.ID, t.Name)
			if t.EstimatedTimeMin != nil {
				fmt.Printf(" (~%d min)", *t.EstimatedTimeMin)
			}
			fmt.Println()
		}
	}
	fmt.Println()
}

func runSessions(cmd *cobra.Command, args []string) error {
	st, _, err := open()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	sessions, err := st.ListSessions(ctx, userID)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("No sessions yet. Run 'clearity chat' to start one.")
		return nil
	}
	for _, sess := range sessions {
		m, err := st.SessionMindMap(ctx, sess.ID)
		if err != nil {
			return err
		}
		name := "(no mind map yet)"
		if m != nil {
			name = m.MapName
		}
		fmt.Printf("%s  %s  %s\n", sess.ID, sess.UpdatedAt.Format("2006-01-02 15:04"), name)
	}
	return nil
}

func runResume(cmd *cobra.Command, args []string) error {
	st, orch, err := open()
	if err != nil {
		return err
	}
	defer st.Close()

	candidates, err := orch.Memory().Candidates(context.Background(), userID, 0)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		fmt.Println("Nothing to resume yet.")
		return nil
	}
	for _, c := range candidates {
		fmt.Printf("%s  %s\n", c.MapName, c.LastUpdated.Format("2006-01-02 15:04"))
		if c.Summary != "" {
			fmt.Printf("  %s\n", c.Summary)
		}
		if len(c.UnresolvedIssues) > 0 {
			fmt.Printf("  unresolved: %s\n", strings.Join(c.UnresolvedIssues, ", "))
		}
	}
	return nil
}

func runTaskDone(cmd *cobra.Command, args []string) error {
	st, _, err := open()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.CompleteTask(context.Background(), args[0]); err != nil {
		return err
	}
	fmt.Printf("Task %s marked completed.\n", args[0])
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/siherrmann/dealgraph/model"
	"github.com/spf13/cobra"
)

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions in an interactive session",
	Long: `Start an interactive session. Every line is asked as a question;
commands start with a slash:

  /articles                 list indexed articles
  /entities <term>          find entities by name
  /report <url> <topic>     write a report on one article
  /help                     show this help
  /exit                     leave the session`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

// chatService is the part of dealgraph a chat session uses
type chatService interface {
	Ask(ctx context.Context, question string) (*model.Answer, error)
	Report(ctx context.Context, url string, topic string) (*model.Report, error)
	ArticleURLs() ([]string, error)
	SearchEntities(ctx context.Context, term string, entityType model.EntityType, limit int) ([]*model.Entity, error)
}

type chatSession struct {
	service chatService
	out     io.Writer
}

const chatHelp = `Type a question, or one of:
  /articles                 list indexed articles
  /entities <term>          find entities by name
  /report <url> <topic>     write a report on one article
  /exit                     leave the session`

// handle processes one input line and reports whether the session ends
func (c *chatSession) handle(ctx context.Context, line string) (bool, error) {
	command, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)

	switch command {
	case "":
		return false, nil
	case "/exit", "/quit", "/q":
		return true, nil
	case "/help":
		fmt.Fprintln(c.out, chatHelp)
		return false, nil
	case "/articles":
		urls, err := c.service.ArticleURLs()
		if err != nil {
			return false, err
		}
		for _, u := range urls {
			fmt.Fprintf(c.out, "  - %s\n", URLStyle.Render(u))
		}
		fmt.Fprintln(c.out, DimStyle.Render(fmt.Sprintf("%d articles", len(urls))))
		return false, nil
	case "/entities":
		if rest == "" {
			return false, errors.New("usage: /entities <term>")
		}
		entities, err := c.service.SearchEntities(ctx, rest, "", 20)
		if err != nil {
			return false, err
		}
		if len(entities) == 0 {
			fmt.Fprintln(c.out, "No entities found")
		}
		for _, e := range entities {
			fmt.Fprintf(c.out, "  %s  %s\n", DimStyle.Render(e.ID.String()), formatEntity(e))
		}
		return false, nil
	case "/report":
		url, topic, _ := strings.Cut(rest, " ")
		topic = strings.TrimSpace(topic)
		if url == "" || topic == "" {
			return false, errors.New("usage: /report <url> <topic>")
		}
		report, err := c.service.Report(ctx, url, topic)
		if err != nil {
			return false, err
		}
		fmt.Fprintln(c.out, report.Text)
		return false, nil
	}

	if strings.HasPrefix(command, "/") {
		return false, fmt.Errorf("unknown command %s, type /help", command)
	}

	answer, err := c.service.Ask(ctx, strings.TrimSpace(line))
	if err != nil {
		return false, err
	}
	fmt.Fprintln(c.out, answer.Text)
	if len(answer.Sources) > 0 {
		fmt.Fprintln(c.out, HeaderStyle.Render("Sources"))
		for _, s := range answer.Sources {
			fmt.Fprintf(c.out, "  - %s\n", URLStyle.Render(s))
		}
	}
	return false, nil
}

func chatCompleter(urls []string) *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("/help"),
		readline.PcItem("/articles"),
		readline.PcItem("/entities"),
		readline.PcItem("/report",
			readline.PcItemDynamic(func(string) []string { return urls }),
		),
		readline.PcItem("/exit"),
	)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	g, err := openDealGraph(true)
	if err != nil {
		return err
	}
	defer g.Close()

	if err := useProvider(g); err != nil {
		return err
	}

	urls, err := g.ArticleURLs()
	if err != nil {
		return err
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            PromptStyle.Render("dealgraph> "),
		HistoryFile:       filepath.Join(os.TempDir(), ".dealgraph_history"),
		AutoComplete:      chatCompleter(urls),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer rl.Close()

	session := &chatSession{service: g, out: rl.Stdout()}

	fmt.Fprintln(rl.Stdout(), HeaderStyle.Render("dealgraph - M&A research assistant"))
	fmt.Fprintf(rl.Stdout(), "%d articles indexed. Type /help for commands.\n\n", len(urls))

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if len(line) == 0 {
				return nil
			}
			continue
		} else if errors.Is(err, io.EOF) {
			return nil
		}

		quit, err := session.handle(ctx, line)
		if err != nil {
			fmt.Fprintf(rl.Stdout(), "%s %v\n", ErrorStyle.Render("Error:"), err)
		}
		if quit || ctx.Err() != nil {
			return nil
		}
	}
}

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/xxxsen/pdfchat/internal/chat"
	"github.com/xxxsen/pdfchat/internal/model"
	"github.com/xxxsen/pdfchat/internal/ragclient"
)

type chatOptions struct {
	endpoint        string
	api             string
	token           string
	demo            bool
	pdfID           string
	model           string
	retrievalMethod string
}

func newChatCommand() *cobra.Command {
	opts := &chatOptions{}
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "chat with a document from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&opts.endpoint, "endpoint", "http://127.0.0.1:8000", "AI service endpoint")
	cmd.Flags().StringVar(&opts.api, "api", "http://127.0.0.1:8080", "pdfchat gateway address")
	cmd.Flags().StringVar(&opts.token, "token", os.Getenv("PDFCHAT_TOKEN"), "session token")
	cmd.Flags().BoolVar(&opts.demo, "demo", false, "chat with the demo documents without signing in")
	cmd.Flags().StringVar(&opts.pdfID, "pdf", "", "document id to chat with")
	cmd.Flags().StringVar(&opts.model, "model", chat.DefaultModel(), "model")
	cmd.Flags().StringVar(&opts.retrievalMethod, "retrieval", chat.DefaultRetrievalMethod(), "retrieval method")
	return cmd
}

func runChat(ctx context.Context, opts *chatOptions, in io.Reader, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if !opts.demo && opts.token == "" {
		return fmt.Errorf("--token is required unless --demo is set")
	}
	api := chat.NewAPIClient(opts.api, opts.token)
	store := chat.NewStore()
	if err := store.SetModel(opts.model); err != nil {
		return err
	}
	if err := store.SetRetrievalMethod(opts.retrievalMethod); err != nil {
		return err
	}

	handlers := chat.StreamHandlers{
		OnChunkReceived: func(chunk string) { _, _ = io.WriteString(out, chunk) },
	}
	backend := chat.NewBackend(ragclient.New(opts.endpoint, 30*time.Second))
	var (
		orch   *chat.Orchestrator
		source chat.OptionSource
	)
	if opts.demo {
		source = chat.DemoSource{API: api}
		orch = chat.NewOrchestrator(store, backend, chat.WithMode(chat.ModeDemo), chat.WithHandlers(handlers))
	} else {
		user, err := api.CurrentUser(ctx)
		if err != nil {
			return fmt.Errorf("resolve user: %w", err)
		}
		source = api
		orch = chat.NewOrchestrator(store, backend,
			chat.WithMode(chat.ModeAuthenticated),
			chat.WithUser(user.ID, opts.token),
			chat.WithSessionSaver(api),
			chat.WithHandlers(handlers),
		)
	}
	if err := store.FetchOptions(ctx, source); err != nil {
		return fmt.Errorf("load documents: %w", err)
	}
	doc, err := pickDocument(store.Snapshot().Documents, opts.pdfID)
	if err != nil {
		return err
	}
	if opts.demo {
		orch.EnterDemo(doc)
	} else {
		orch.SelectDocument(doc)
	}
	fmt.Fprintf(out, "chatting with %s (/new starts over, /quit exits)\n", doc.PdfName)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit":
			return nil
		case "/new":
			orch.NewChat()
			continue
		}
		gen, err := orch.Send(ctx, line)
		if err != nil {
			fmt.Fprintln(out, "error:", err)
			continue
		}
		select {
		case <-gen.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
		fmt.Fprintln(out)
		if msg := store.Error(); msg != "" {
			fmt.Fprintln(out, "error:", msg)
		}
	}
}

// pickDocument returns the requested document, or the first one ready for chat.
func pickDocument(docs []model.Document, pdfID string) (model.Document, error) {
	for _, doc := range docs {
		if pdfID != "" && doc.PdfID == pdfID {
			if !doc.IngestionStatus.Selectable() {
				return model.Document{}, fmt.Errorf("%s: %w", doc.PdfName, chat.ErrDocumentNotReady)
			}
			return doc, nil
		}
		if pdfID == "" && doc.IngestionStatus.Selectable() {
			return doc, nil
		}
	}
	if pdfID != "" {
		return model.Document{}, fmt.Errorf("document %s not found", pdfID)
	}
	return model.Document{}, chat.ErrNoDocument
}

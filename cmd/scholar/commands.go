package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"arxiv_rag_go_backend/internal/mathtext"
	"arxiv_rag_go_backend/internal/models"
	"arxiv_rag_go_backend/internal/tui"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"
)

var (
	titleColor  = color.New(color.FgCyan, color.Bold).SprintFunc()
	mutedColor  = color.New(color.FgHiBlack).SprintFunc()
	onlineColor = color.New(color.FgGreen).SprintFunc()
	failedColor = color.New(color.FgRed).SprintFunc()
)

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Open the interactive search and ask UI",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runUI(cmd)
	},
}

func runUI(cmd *cobra.Command) error {
	pageSize, _ := cmd.Flags().GetInt("page-size")
	return tui.Run(cmd.Context(), newClient(), tui.Options{PageSize: pageSize})
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search arXiv through the backend",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := models.NewSearchRequest()
		req.Query = strings.Join(args, " ")
		req.MaxResults, _ = cmd.Flags().GetInt("max-results")
		req.SortBy, _ = cmd.Flags().GetString("sort")
		req.Page, _ = cmd.Flags().GetInt("page")
		req.PageSize, _ = cmd.Flags().GetInt("page-size")

		resp, err := newClient().Search(cmd.Context(), req)
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("output")
		return printSearch(cmd.OutOrStdout(), resp, req.PageSize, format)
	},
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question answered from indexed papers",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := models.NewAskRequest()
		req.Question = strings.Join(args, " ")
		req.Query, _ = cmd.Flags().GetString("query")
		req.MaxResults, _ = cmd.Flags().GetInt("max-results")
		req.TopK, _ = cmd.Flags().GetInt("top-k")

		resp, err := newClient().Ask(cmd.Context(), req)
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("output")
		return printAsk(cmd.OutOrStdout(), resp, format)
	},
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check whether the backend is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()
		if err := c.Probe(ctx); err != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%v)\n", failedColor("offline"), c.BaseURL(), err)
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", onlineColor("online"), c.BaseURL())
		return nil
	},
}

func init() {
	rootCmd.Flags().Int("page-size", models.DefaultPageSize, "results per page (5, 10 or 20)")
	uiCmd.Flags().Int("page-size", models.DefaultPageSize, "results per page (5, 10 or 20)")

	searchCmd.Flags().Int("max-results", models.DefaultSearchMaxResults, "papers fetched from arXiv")
	searchCmd.Flags().String("sort", models.DefaultSortBy, "relevance, date or title")
	searchCmd.Flags().Int("page", models.DefaultPage, "page number")
	searchCmd.Flags().Int("page-size", models.DefaultPageSize, "results per page")
	searchCmd.Flags().StringP("output", "o", "text", "output format: text, json or yaml")

	askCmd.Flags().String("query", "", "arXiv query used when nothing is indexed yet")
	askCmd.Flags().Int("max-results", models.DefaultAskMaxResults, "papers fetched for an empty index")
	askCmd.Flags().Int("top-k", models.DefaultTopK, "chunks given to the model")
	askCmd.Flags().StringP("output", "o", "text", "output format: text, json or yaml")

	rootCmd.AddCommand(uiCmd, searchCmd, askCmd, probeCmd)
}

func printSearch(w io.Writer, resp *models.SearchResponse, pageSize int, format string) error {
	switch format {
	case "json":
		return writeJSON(w, resp)
	case "yaml":
		return writeYAML(w, resp)
	case "text", "":
	default:
		return fmt.Errorf("unsupported output format %q: use text, json or yaml", format)
	}

	offset := 0
	if resp.Page > 1 && pageSize > 0 {
		offset = (resp.Page - 1) * pageSize
	}
	for i, p := range resp.Papers {
		fmt.Fprintf(w, "%2d. %s\n", offset+i+1, titleColor(p.Title))
		fmt.Fprintf(w, "    %s\n", mutedColor(fmt.Sprintf("%s · %s · %s", p.PaperID, p.Published, strings.Join(p.Authors, ", "))))
	}
	fmt.Fprintf(w, "Page %d/%d, %d papers\n", resp.Page, resp.TotalPages, resp.Total)
	return nil
}

func printAsk(w io.Writer, resp *models.AskResponse, format string) error {
	switch format {
	case "json":
		return writeJSON(w, resp)
	case "yaml":
		return writeYAML(w, resp)
	case "text", "":
	default:
		return fmt.Errorf("unsupported output format %q: use text, json or yaml", format)
	}

	fmt.Fprintln(w, mathtext.Render(resp.Answer))
	if len(resp.Citations) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, titleColor("Citations"))
		for i, c := range resp.Citations {
			fmt.Fprintf(w, "[%d] %s (%s, chunk %d)\n", i+1, c.Title, c.PaperID, c.ChunkIndex)
			fmt.Fprintf(w, "    %s\n", mutedColor(c.Content))
		}
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	// Round-trip through JSON so the yaml keys follow the json tags.
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"brandevo/internal/httpapi"
)

const defaultAddr = "http://localhost:8080"

// apiClient talks to a running serve process. Evolve and submit must go
// through it because pending engagement lives in the server's memory.
type apiClient struct {
	base string
	http *http.Client
}

func newAPIClient(addr string) *apiClient {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	return &apiClient{
		base: strings.TrimRight(addr, "/"),
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

// post sends body and decodes the reply into out for any status in accept.
func (c *apiClient) post(ctx context.Context, path string, body, out any, accept ...int) (int, error) {
	var payload bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&payload).Encode(body); err != nil {
			return 0, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, &payload)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	for _, status := range accept {
		if resp.StatusCode == status {
			return resp.StatusCode, json.NewDecoder(resp.Body).Decode(out)
		}
	}
	var apiErr httpapi.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil || apiErr.Error == "" {
		return resp.StatusCode, fmt.Errorf("post %s: unexpected status %d", path, resp.StatusCode)
	}
	if apiErr.Details != "" {
		return resp.StatusCode, fmt.Errorf("%s (%s): %s", apiErr.Error, apiErr.Code, apiErr.Details)
	}
	return resp.StatusCode, fmt.Errorf("%s (%s)", apiErr.Error, apiErr.Code)
}

func newEvolveCmd(opts *globalOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "evolve",
		Short: "Trigger one evolution on a running server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var resp httpapi.EvolveResponse
			if _, err := newAPIClient(addr).post(cmd.Context(), "/v1/evolve", nil, &resp, http.StatusOK, http.StatusConflict); err != nil {
				return err
			}
			switch resp.Status {
			case "evolved":
				fmt.Fprintf(opts.out, "evolved generation=%d new_generation=%d", resp.GenerationID, resp.NewGenerationID)
			case "stalled":
				fmt.Fprintf(opts.out, "stalled generation=%d reason=%s", resp.GenerationID, resp.Reason)
			default:
				fmt.Fprintf(opts.out, "%s", resp.Status)
			}
			if d := resp.Diagnostics; d != nil {
				fmt.Fprintf(opts.out, " best=%.4f mean=%.4f scored=%d", d.BestFitness, d.MeanFitness, d.ScoredCount)
			}
			fmt.Fprintln(opts.out)
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", defaultAddr, "server address")
	return cmd
}

func newSubmitCmd(opts *globalOptions) *cobra.Command {
	var (
		addr string
		req  httpapi.EngagementRequest
		gen  int
		slot int
	)
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit one engagement observation to a running server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req.GenerationID = &gen
			req.Index = &slot
			var resp httpapi.EngagementResponse
			if _, err := newAPIClient(addr).post(cmd.Context(), "/v1/engagement", req, &resp, http.StatusAccepted); err != nil {
				return err
			}
			fmt.Fprintf(opts.out, "accepted id=%s ref=%s pending=%d\n", resp.ID, resp.Ref, resp.PendingCount)
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", defaultAddr, "server address")
	cmd.Flags().IntVar(&gen, "generation", 0, "generation id of the rendered vector")
	cmd.Flags().IntVar(&slot, "index", 0, "individual slot of the rendered vector")
	cmd.Flags().Int64Var(&req.Views, "views", 0, "view count")
	cmd.Flags().Int64Var(&req.Likes, "likes", 0, "like count")
	cmd.Flags().Int64Var(&req.Shares, "shares", 0, "share count")
	cmd.Flags().Float64Var(&req.WatchFraction, "watch", 0, "mean watch fraction in [0, 1]")
	cmd.Flags().Float64Var(&req.RenderCost, "cost", 0, "render cost")
	cmd.Flags().StringVar(&req.ID, "id", "", "idempotency id")
	_ = cmd.MarkFlagRequired("generation")
	_ = cmd.MarkFlagRequired("index")
	return cmd
}

package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dealhunter/dealhunter/internal/config"
)

// --- search ---

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Decompose a travel query into search tasks",
	Long: `Decompose a free-form travel query into concrete flight, hotel,
and activity search tasks.

Examples:
  dealhunter search "beach week in Portugal in August" --user alice
  dealhunter search "ski trip for two" --user alice --budget 3500`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		userID, _ := cmd.Flags().GetString("user")
		budget, _ := cmd.Flags().GetFloat64("budget")

		if userID == "" {
			return fmt.Errorf("--user is required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		body := map[string]any{"query": query, "user_id": userID}
		if budget > 0 {
			body["budget"] = budget
		}
		resp, err := client.post(cmd.Context(), "/search", body)
		if err != nil {
			return err
		}

		var result struct {
			LogID string `json:"logId"`
			Tasks []struct {
				Type        string    `json:"type"`
				Destination string    `json:"destination"`
				Budget      float64   `json:"budget"`
				StartDate   time.Time `json:"startDate"`
				EndDate     time.Time `json:"endDate"`
			} `json:"tasks"`
			Award *struct {
				Points  int  `json:"points"`
				Level   int  `json:"level"`
				LevelUp bool `json:"levelUp"`
			} `json:"award"`
		}
		if err := decodeData(resp, &result); err != nil {
			return err
		}

		printSuccess("Search %s completed with %d tasks", result.LogID[:8], len(result.Tasks))
		for _, t := range result.Tasks {
			fmt.Printf("  %s  %s  %.0f  %s → %s\n",
				colorize(colorCyan, t.Type),
				t.Destination,
				t.Budget,
				t.StartDate.Format("2006-01-02"),
				t.EndDate.Format("2006-01-02"),
			)
		}
		if result.Award != nil {
			if result.Award.LevelUp {
				printSuccess("Level up! You are now level %d (%d points)", result.Award.Level, result.Award.Points)
			} else {
				printStatus("Points", "%d (level %d)", result.Award.Points, result.Award.Level)
			}
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().String("user", "", "user ID the search is performed for")
	searchCmd.Flags().Float64("budget", 0, "total trip budget")
}

// --- searches ---

var searchesCmd = &cobra.Command{
	Use:   "searches",
	Short: "Browse search history",
}

var searchesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent searches",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := fmt.Sprintf("/searches?limit=%d", limit)
		if userID != "" {
			path += "&user_id=" + url.QueryEscape(userID)
		}
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}

		var logs []struct {
			ID        string    `json:"ID"`
			Query     string    `json:"Query"`
			Status    string    `json:"Status"`
			CreatedAt time.Time `json:"CreatedAt"`
		}
		if err := decodeData(resp, &logs); err != nil {
			return err
		}

		if len(logs) == 0 {
			fmt.Println("No searches found.")
			return nil
		}
		for _, l := range logs {
			query := l.Query
			if len(query) > 60 {
				query = query[:60] + "..."
			}
			fmt.Printf("%s  %-9s  %s  %s\n",
				colorize(colorCyan, l.ID[:8]),
				l.Status,
				l.CreatedAt.Format("2006-01-02 15:04"),
				query,
			)
		}
		return nil
	},
}

var searchesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one search with its tasks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/searches/"+args[0])
		if err != nil {
			return err
		}

		var detail any
		if err := decodeData(resp, &detail); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(detail)
	},
}

var searchesPDFCmd = &cobra.Command{
	Use:   "pdf <id>",
	Short: "Export a completed search's itinerary as PDF",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			output = args[0] + ".pdf"
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/searches/"+args[0]+"/itinerary.pdf")
		if err != nil {
			return err
		}
		data, err := readRaw(resp)
		if err != nil {
			return err
		}

		if err := os.WriteFile(output, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", output, err)
		}
		printSuccess("Itinerary written to %s", output)
		return nil
	},
}

func init() {
	searchesListCmd.Flags().String("user", "", "filter by user ID")
	searchesListCmd.Flags().Int("limit", 20, "maximum number of searches to list")
	searchesPDFCmd.Flags().String("output", "", "output file path (default: <id>.pdf)")
	searchesCmd.AddCommand(searchesListCmd)
	searchesCmd.AddCommand(searchesShowCmd)
	searchesCmd.AddCommand(searchesPDFCmd)
}

// --- deals ---

var dealsCmd = &cobra.Command{
	Use:   "deals",
	Short: "Browse and manage the deals catalog",
}

var dealsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List deals",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := fmt.Sprintf("/deals?limit=%d", limit)
		if all {
			path += "&active=false"
		}
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}

		var deals []struct {
			ID            string  `json:"ID"`
			Title         string  `json:"Title"`
			Destination   string  `json:"Destination"`
			Price         float64 `json:"Price"`
			OriginalPrice float64 `json:"OriginalPrice"`
			Active        bool    `json:"Active"`
		}
		if err := decodeData(resp, &deals); err != nil {
			return err
		}

		if len(deals) == 0 {
			fmt.Println("No deals found.")
			return nil
		}
		for _, d := range deals {
			label := d.Title
			if !d.Active {
				label += colorize(colorYellow, " (inactive)")
			}
			fmt.Printf("%s  %-12s  %8.2f  %s\n",
				colorize(colorCyan, d.ID[:8]),
				d.Destination,
				d.Price,
				label,
			)
		}
		return nil
	},
}

var dealsAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a deal to the catalog",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		title := strings.Join(args, " ")
		destination, _ := cmd.Flags().GetString("destination")
		category, _ := cmd.Flags().GetString("category")
		price, _ := cmd.Flags().GetFloat64("price")
		originalPrice, _ := cmd.Flags().GetFloat64("original-price")
		vibe, _ := cmd.Flags().GetString("vibe")
		expires, _ := cmd.Flags().GetString("expires")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		body := map[string]any{
			"title":          title,
			"destination":    destination,
			"category":       category,
			"price":          price,
			"original_price": originalPrice,
			"vibe":           vibe,
		}
		if expires != "" {
			body["expires_at"] = expires
		}
		resp, err := client.post(cmd.Context(), "/deals", body)
		if err != nil {
			return err
		}

		var deal struct {
			ID string `json:"ID"`
		}
		if err := decodeData(resp, &deal); err != nil {
			return err
		}

		printSuccess("Added deal %s", deal.ID)
		return nil
	},
}

var dealsScoreCmd = &cobra.Command{
	Use:   "score <id>",
	Short: "Rate a deal with the AI advisor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/deals/"+args[0]+"/score", nil)
		if err != nil {
			return err
		}

		var score struct {
			Rating  string `json:"rating"`
			Summary string `json:"summary"`
		}
		if err := decodeData(resp, &score); err != nil {
			return err
		}

		color := colorYellow
		switch score.Rating {
		case "STEAL":
			color = colorGreen
		case "POOR":
			color = colorRed
		}
		fmt.Printf("%s  %s\n", colorize(color, score.Rating), score.Summary)
		return nil
	},
}

func init() {
	dealsListCmd.Flags().Bool("all", false, "include inactive deals")
	dealsListCmd.Flags().Int("limit", 50, "maximum number of deals to list")
	dealsAddCmd.Flags().String("destination", "", "deal destination")
	dealsAddCmd.Flags().String("category", "", "deal category (flight, hotel, activity)")
	dealsAddCmd.Flags().Float64("price", 0, "deal price")
	dealsAddCmd.Flags().Float64("original-price", 0, "regular price before discount")
	dealsAddCmd.Flags().String("vibe", "", "deal vibe, e.g. beach, culture")
	dealsAddCmd.Flags().String("expires", "", "expiry time (RFC3339); empty means never")
	dealsCmd.AddCommand(dealsListCmd)
	dealsCmd.AddCommand(dealsAddCmd)
	dealsCmd.AddCommand(dealsScoreCmd)
}

// --- pulse ---

var pulseCmd = &cobra.Command{
	Use:   "pulse <destination>",
	Short: "Predict whether prices will drop for a destination",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		destination := strings.Join(args, " ")
		target, _ := cmd.Flags().GetFloat64("target")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/price-pulse", map[string]any{
			"destination":  destination,
			"target_price": target,
		})
		if err != nil {
			return err
		}

		var pulse struct {
			Signal     string  `json:"signal"`
			Confidence float64 `json:"confidence"`
			Message    string  `json:"message"`
		}
		if err := decodeData(resp, &pulse); err != nil {
			return err
		}

		fmt.Printf("%s (%.0f%%)  %s\n", colorize(colorBold, pulse.Signal), pulse.Confidence*100, pulse.Message)
		return nil
	},
}

func init() {
	pulseCmd.Flags().Float64("target", 0, "target price (required)")
}

// --- itinerary ---

var itineraryCmd = &cobra.Command{
	Use:   "itinerary <destination>",
	Short: "Generate a day-by-day itinerary",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		destination := strings.Join(args, " ")
		days, _ := cmd.Flags().GetInt("days")
		vibe, _ := cmd.Flags().GetString("vibe")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/itinerary", map[string]any{
			"destination": destination,
			"days":        days,
			"vibe":        vibe,
		})
		if err != nil {
			return err
		}

		var it struct {
			Destination string `json:"destination"`
			Days        []struct {
				Day        int      `json:"day"`
				Title      string   `json:"title"`
				Activities []string `json:"activities"`
			} `json:"days"`
			Fallback bool `json:"fallback"`
		}
		if err := decodeData(resp, &it); err != nil {
			return err
		}
		if it.Fallback {
			printWarning("Itinerary generation is unavailable right now; try again shortly.")
			return nil
		}

		for _, day := range it.Days {
			fmt.Printf("\n%s\n", colorize(colorBold, fmt.Sprintf("Day %d: %s", day.Day, day.Title)))
			for _, act := range day.Activities {
				fmt.Printf("  - %s\n", act)
			}
		}
		return nil
	},
}

func init() {
	itineraryCmd.Flags().Int("days", 3, "trip length in days")
	itineraryCmd.Flags().String("vibe", "", "trip vibe, e.g. beach, culture, food")
}

// --- packing ---

var packingCmd = &cobra.Command{
	Use:   "packing <destination>",
	Short: "Generate a packing checklist",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		destination := strings.Join(args, " ")
		days, _ := cmd.Flags().GetInt("days")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/packing-list", map[string]any{
			"destination": destination,
			"days":        days,
		})
		if err != nil {
			return err
		}

		var list struct {
			Categories []struct {
				Name  string   `json:"name"`
				Items []string `json:"items"`
			} `json:"categories"`
			Fallback bool `json:"fallback"`
		}
		if err := decodeData(resp, &list); err != nil {
			return err
		}
		if list.Fallback {
			printWarning("Packing list generation is unavailable right now; try again shortly.")
			return nil
		}

		for _, cat := range list.Categories {
			fmt.Printf("\n%s\n", colorize(colorBold, cat.Name))
			for _, item := range cat.Items {
				fmt.Printf("  [ ] %s\n", item)
			}
		}
		return nil
	},
}

func init() {
	packingCmd.Flags().Int("days", 7, "trip length in days")
}

// --- points ---

var pointsCmd = &cobra.Command{
	Use:   "points <user-id>",
	Short: "Show a user's points, level, and recent awards",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/users/"+args[0]+"/points")
		if err != nil {
			return err
		}

		var data struct {
			Points       int `json:"points"`
			Level        int `json:"level"`
			Transactions []struct {
				Amount    int       `json:"Amount"`
				Reason    string    `json:"Reason"`
				CreatedAt time.Time `json:"CreatedAt"`
			} `json:"transactions"`
		}
		if err := decodeData(resp, &data); err != nil {
			return err
		}

		printStatus("Points", "%d", data.Points)
		printStatus("Level", "%d", data.Level)
		for _, tx := range data.Transactions {
			fmt.Printf("  %+d  %s  %s\n", tx.Amount, tx.CreatedAt.Format("2006-01-02 15:04"), tx.Reason)
		}
		return nil
	},
}

// --- user ---

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a user",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := strings.Join(args, " ")
		id, _ := cmd.Flags().GetString("id")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		body := map[string]any{"name": name}
		if id != "" {
			body["id"] = id
		}
		resp, err := client.post(cmd.Context(), "/users", body)
		if err != nil {
			return err
		}

		var user struct {
			ID string `json:"ID"`
		}
		if err := decodeData(resp, &user); err != nil {
			return err
		}

		printSuccess("Created user %s", user.ID)
		return nil
	},
}

func init() {
	userCreateCmd.Flags().String("id", "", "explicit user ID (default: generated)")
	userCmd.AddCommand(userCreateCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

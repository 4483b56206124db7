// Package main provides the Muninn CLI entry point.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/orneryd/muninn/pkg/config"
	"github.com/orneryd/muninn/pkg/graph"
	"github.com/orneryd/muninn/pkg/logging"
	"github.com/orneryd/muninn/pkg/metrics"
	"github.com/orneryd/muninn/pkg/muninn"
	"github.com/orneryd/muninn/pkg/retrieve"
	"github.com/orneryd/muninn/pkg/store"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "muninn",
		Short: "Muninn - Knowledge-Graph Retrieval & Traversal Engine",
		Long: `Muninn finds and ranks the entities and paths relevant to a query
over a graph of typed entities and typed relations.

Features:
  • Personalized ranking from seed entities
  • Bounded multi-hop expansion with score decay
  • Property-filtered retrieval
  • Pattern-constrained path enumeration with cycle control
  • TTL + LRU retrieval cache`,
	}

	rootCmd.PersistentFlags().String("graph", "", "JSON graph export to load into memory")
	rootCmd.PersistentFlags().String("data-dir", "", "Badger data directory (overrides --graph)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("pretty", false, "Human-readable log output")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Muninn v%s (%s)\n", version, commit)
		},
	})

	rankCmd := &cobra.Command{
		Use:   "rank [seed-id...]",
		Short: "Rank entities by personalized relevance from seed entities",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runRank,
	}
	rankCmd.Flags().Int("max-results", 10, "Maximum results")
	rankCmd.Flags().Float64("alpha", 0.15, "Restart probability")
	rootCmd.AddCommand(rankCmd)

	hopsCmd := &cobra.Command{
		Use:   "hops [seed-id...]",
		Short: "Expand from seeds with per-hop score decay",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runHops,
	}
	hopsCmd.Flags().Int("max-hops", 2, "Expansion bound")
	hopsCmd.Flags().Int("max-results", 10, "Maximum results")
	hopsCmd.Flags().Float64("decay", 0.7, "Per-hop score decay")
	hopsCmd.Flags().Bool("include-seeds", false, "Include seeds in output")
	rootCmd.AddCommand(hopsCmd)

	pathsCmd := &cobra.Command{
		Use:   "paths [source-id] [target-id]",
		Short: "Find paths between two entities",
		Args:  cobra.ExactArgs(2),
		RunE:  runPaths,
	}
	pathsCmd.Flags().Int("max-depth", 3, "Traversal depth bound")
	pathsCmd.Flags().Int("max-paths", 10, "Maximum paths")
	pathsCmd.Flags().StringSlice("relation-types", nil, "Allowed relation types")
	rootCmd.AddCommand(pathsCmd)

	filterCmd := &cobra.Command{
		Use:   "filter [entity-type]",
		Short: "Select entities of a type by property constraints",
		Args:  cobra.ExactArgs(1),
		RunE:  runFilter,
	}
	filterCmd.Flags().StringSlice("where", nil, "Property constraints as key=value")
	filterCmd.Flags().Int("max-results", 25, "Maximum results")
	rootCmd.AddCommand(filterCmd)

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Print graph and cache statistics",
		RunE:  runStats,
	}
	rootCmd.AddCommand(statsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newEngine builds an engine over the graph named by the global flags.
// The returned close function releases the store.
func newEngine(cmd *cobra.Command) (*muninn.Engine, func(), error) {
	cfg := config.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	level, _ := cmd.Flags().GetString("log-level")
	pretty, _ := cmd.Flags().GetBool("pretty")
	logger := logging.New(logging.Config{Level: level, Pretty: pretty})

	if cfg.Metrics.Enabled {
		if err := metrics.EnablePrometheus(cfg.Metrics.Addr); err != nil {
			return nil, nil, err
		}
	}

	dataDir, _ := cmd.Flags().GetString("data-dir")
	if dataDir != "" {
		bs, err := store.NewBadgerStore(store.BadgerOptions{
			DataDir:    dataDir,
			SyncWrites: cfg.Store.SyncWrites,
		})
		if err != nil {
			return nil, nil, err
		}
		eng := muninn.New(bs, muninn.Options{Config: cfg, Logger: logger})
		return eng, func() { bs.Close() }, nil
	}

	graphPath, _ := cmd.Flags().GetString("graph")
	if graphPath == "" {
		return nil, nil, fmt.Errorf("either --graph or --data-dir is required")
	}

	f, err := os.Open(graphPath)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	ms := store.NewMemoryStore()
	entities, relations, err := store.ImportJSON(cmd.Context(), ms, f)
	if err != nil {
		return nil, nil, fmt.Errorf("load %s: %w", graphPath, err)
	}
	logger.Debug().
		Int("entities", entities).
		Int("relations", relations).
		Str("file", graphPath).
		Msg("graph loaded")

	eng := muninn.New(ms, muninn.Options{Config: cfg, Logger: logger})
	return eng, func() { ms.Close() }, nil
}

func runRank(cmd *cobra.Command, args []string) error {
	eng, done, err := newEngine(cmd)
	if err != nil {
		return err
	}
	defer done()

	maxResults, _ := cmd.Flags().GetInt("max-results")
	scored, err := eng.Rank(cmd.Context(), toEntityIDs(args), maxResults)
	if err != nil {
		return err
	}
	return printScored(scored)
}

func runHops(cmd *cobra.Command, args []string) error {
	eng, done, err := newEngine(cmd)
	if err != nil {
		return err
	}
	defer done()

	maxHops, _ := cmd.Flags().GetInt("max-hops")
	maxResults, _ := cmd.Flags().GetInt("max-results")
	decay, _ := cmd.Flags().GetFloat64("decay")
	includeSeeds, _ := cmd.Flags().GetBool("include-seeds")

	scored, err := eng.MultiHop(cmd.Context(), toEntityIDs(args), retrieve.MultiHopOptions{
		MaxHops:      maxHops,
		MaxResults:   maxResults,
		ScoreDecay:   decay,
		IncludeSeeds: includeSeeds,
	})
	if err != nil {
		return err
	}
	return printScored(scored)
}

func runPaths(cmd *cobra.Command, args []string) error {
	eng, done, err := newEngine(cmd)
	if err != nil {
		return err
	}
	defer done()

	maxDepth, _ := cmd.Flags().GetInt("max-depth")
	maxPaths, _ := cmd.Flags().GetInt("max-paths")
	relTypes, _ := cmd.Flags().GetStringSlice("relation-types")

	pattern := &graph.PathPattern{
		MaxDepth:      maxDepth,
		RelationTypes: relTypes,
		Direction:     graph.Outgoing,
	}
	paths, err := eng.FindPaths(cmd.Context(), graph.EntityID(args[0]), graph.EntityID(args[1]), pattern, maxPaths)
	if err != nil {
		return err
	}
	eng.Scorer().ScoreByLength(paths, true)
	paths = eng.Scorer().RankPaths(paths, maxPaths, 0)

	for _, p := range paths {
		ids := make([]string, 0, len(p.Nodes))
		for _, n := range p.Nodes {
			ids = append(ids, string(n.ID))
		}
		fmt.Printf("%.4f  %s\n", p.Score, strings.Join(ids, " -> "))
	}
	return nil
}

func runFilter(cmd *cobra.Command, args []string) error {
	eng, done, err := newEngine(cmd)
	if err != nil {
		return err
	}
	defer done()

	where, _ := cmd.Flags().GetStringSlice("where")
	filters := make(map[string]any, len(where))
	for _, clause := range where {
		key, value, found := strings.Cut(clause, "=")
		if !found {
			return fmt.Errorf("invalid --where clause %q, expected key=value", clause)
		}
		filters[key] = value
	}

	maxResults, _ := cmd.Flags().GetInt("max-results")
	scored, err := eng.Filter(cmd.Context(), retrieve.FilterOptions{
		EntityType:      args[0],
		PropertyFilters: filters,
		MaxResults:      maxResults,
	})
	if err != nil {
		return err
	}
	return printScored(scored)
}

func runStats(cmd *cobra.Command, args []string) error {
	eng, done, err := newEngine(cmd)
	if err != nil {
		return err
	}
	defer done()

	stats := eng.CacheStats()
	out := map[string]any{
		"cache": stats,
	}
	if ms, ok := eng.Store().(*store.MemoryStore); ok {
		out["entities"] = ms.EntityCount()
		out["relations"] = ms.RelationCount()
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func toEntityIDs(args []string) []graph.EntityID {
	ids := make([]graph.EntityID, 0, len(args))
	for _, a := range args {
		ids = append(ids, graph.EntityID(a))
	}
	return ids
}

func printScored(scored []graph.ScoredEntity) error {
	for _, se := range scored {
		fmt.Printf("%.4f  %s (%s)\n", se.Score, se.Entity.ID, se.Entity.Type)
	}
	return nil
}

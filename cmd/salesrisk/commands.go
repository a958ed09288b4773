package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"sentiment-sales-risk/internal/export"
	"sentiment-sales-risk/internal/logger"
	"sentiment-sales-risk/internal/scheduler"
	"sentiment-sales-risk/internal/server"
	"sentiment-sales-risk/internal/types"
)

// withApp runs fn against a fully initialized app.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	if err := initializeSystem(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path, _ := cmd.Flags().GetString("config")
	cfg, err := loadConfig(ctx, configPath(path))
	if err != nil {
		return err
	}
	a, err := buildApp(ctx, cfg)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to initialize application", err)
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "salesrisk",
		Short:         "Sentiment-driven sales risk analysis",
		Long:          "salesrisk scores public comments about a product, trains a per-request risk model against daily sales and reports the probability and size of a sales drop.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().String("config", "", "Configuration file path (default $CONFIG_PATH or config.yaml)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newPredictCmd())
	rootCmd.AddCommand(newDashboardCmd())
	rootCmd.AddCommand(newCommentsCmd())
	rootCmd.AddCommand(newRefreshCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the watchlist scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if a.cfg.Mode == "PROD" {
					gin.SetMode(gin.ReleaseMode)
				}
				router := server.NewRouter(server.RouterConfig{
					Pipeline:    a.pipeline,
					Metrics:     a.metrics,
					Health:      a.health,
					CORSOrigins: a.cfg.Server.CORSOrigins,
				})

				if a.cfg.Scheduler.Schedule != "" {
					sched, err := scheduler.New(a.cfg.Scheduler.Schedule, a.cfg.Scheduler.WindowDays, a.cfg.Scheduler.Watchlist, a.pipeline)
					if err != nil {
						return err
					}
					go sched.Run(ctx)
				}

				return server.New(a.cfg.Server.Addr, router).Run(ctx)
			})
		},
	}
}

// addRequestFlags registers the product/brand/platform/date flags shared by
// analyze and predict.
func addRequestFlags(cmd *cobra.Command) {
	cmd.Flags().String("product", "", "Product name")
	cmd.Flags().String("brand", "", "Brand name")
	cmd.Flags().String("platform", "", "Platform (e.g. youtube); empty means all")
	cmd.Flags().String("start", "", "Start date YYYY-MM-DD (default 30 days before end)")
	cmd.Flags().String("end", "", "End date YYYY-MM-DD (default today)")
	cmd.Flags().Bool("json", false, "Print raw JSON instead of panels")
	_ = cmd.MarkFlagRequired("product")
}

func analysisRequest(cmd *cobra.Command) (types.AnalysisRequest, error) {
	product, _ := cmd.Flags().GetString("product")
	brand, _ := cmd.Flags().GetString("brand")
	platform, _ := cmd.Flags().GetString("platform")
	startStr, _ := cmd.Flags().GetString("start")
	endStr, _ := cmd.Flags().GetString("end")

	end := types.Today()
	if endStr != "" {
		d, err := types.ParseDate(endStr)
		if err != nil {
			return types.AnalysisRequest{}, err
		}
		end = d
	}
	start := end.AddDays(-30)
	if startStr != "" {
		d, err := types.ParseDate(startStr)
		if err != nil {
			return types.AnalysisRequest{}, err
		}
		start = d
	}
	return types.AnalysisRequest{
		ProductName: product,
		BrandName:   brand,
		Platform:    platform,
		StartDate:   start,
		EndDate:     end,
	}, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Summarize sentiment for a product over a date range",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := analysisRequest(cmd)
			if err != nil {
				return err
			}
			asJSON, _ := cmd.Flags().GetBool("json")
			return withApp(cmd, func(ctx context.Context, a *app) error {
				res, err := a.pipeline.AnalyzeSentiment(ctx, req)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(res)
				}
				fmt.Println(renderAnalysis(res))
				return nil
			})
		},
	}
	addRequestFlags(cmd)
	return cmd
}

func newPredictCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict sales-loss risk for a product",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := analysisRequest(cmd)
			if err != nil {
				return err
			}
			asJSON, _ := cmd.Flags().GetBool("json")
			return withApp(cmd, func(ctx context.Context, a *app) error {
				res, err := a.pipeline.PredictSalesLoss(ctx, req)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(res)
				}
				fmt.Println(renderPrediction(res))
				return nil
			})
		},
	}
	addRequestFlags(cmd)
	return cmd
}

func newDashboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Build the 30-day dashboard for a product",
		RunE: func(cmd *cobra.Command, args []string) error {
			product, _ := cmd.Flags().GetString("product")
			brand, _ := cmd.Flags().GetString("brand")
			platform, _ := cmd.Flags().GetString("platform")
			asJSON, _ := cmd.Flags().GetBool("json")
			doExport, _ := cmd.Flags().GetBool("export")
			dir, _ := cmd.Flags().GetString("export-dir")

			return withApp(cmd, func(ctx context.Context, a *app) error {
				dash, err := a.pipeline.BuildDashboard(ctx, types.DashboardRequest{
					ProductName: product,
					BrandName:   brand,
					Platform:    platform,
				})
				if err != nil {
					return err
				}
				if asJSON {
					if err := printJSON(dash); err != nil {
						return err
					}
				} else {
					fmt.Println(renderDashboard(dash))
				}
				if doExport {
					if dir == "" {
						dir = export.Dir()
					}
					path, err := export.WriteDashboardFile(ctx, dir, dash, types.Today().Time)
					if err != nil {
						return err
					}
					fmt.Fprintln(os.Stderr, "CSV written:", path)
				}
				return nil
			})
		},
	}
	cmd.Flags().String("product", "", "Product name")
	cmd.Flags().String("brand", "", "Brand name")
	cmd.Flags().String("platform", "", "Platform; empty means all")
	cmd.Flags().Bool("json", false, "Print raw JSON instead of panels")
	cmd.Flags().Bool("export", false, "Also write the sales and sentiment series as CSV")
	cmd.Flags().String("export-dir", "", "CSV directory (default $SALESRISK_EXPORT_DIR or exports)")
	_ = cmd.MarkFlagRequired("product")
	return cmd
}

func newCommentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comments",
		Short: "List stored comments for a product",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := types.CommentQuery{}
			q.ProductName, _ = cmd.Flags().GetString("product")
			q.BrandName, _ = cmd.Flags().GetString("brand")
			q.Platform, _ = cmd.Flags().GetString("platform")
			if l, _ := cmd.Flags().GetString("label"); l != "" {
				label, err := types.ParseLabel(l)
				if err != nil {
					return err
				}
				q.Label = label
			}
			limit, _ := cmd.Flags().GetInt("limit")
			asJSON, _ := cmd.Flags().GetBool("json")

			return withApp(cmd, func(ctx context.Context, a *app) error {
				posts, err := a.pipeline.Comments(ctx, q)
				if err != nil {
					return err
				}
				if limit > 0 && len(posts) > limit {
					posts = posts[:limit]
				}
				if asJSON {
					return printJSON(posts)
				}
				fmt.Println(renderComments(posts))
				return nil
			})
		},
	}
	cmd.Flags().String("product", "", "Product name")
	cmd.Flags().String("brand", "", "Brand name")
	cmd.Flags().String("platform", "", "Platform; empty means all")
	cmd.Flags().String("label", "", "Only comments labelled positive, neutral or negative")
	cmd.Flags().Int("limit", 20, "Maximum comments to print; 0 prints all")
	cmd.Flags().Bool("json", false, "Print raw JSON")
	_ = cmd.MarkFlagRequired("product")
	return cmd
}

func newRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Refresh predictions for every watchlist item once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				expr := a.cfg.Scheduler.Schedule
				if expr == "" {
					expr = "0 0 * * *"
				}
				sched, err := scheduler.New(expr, a.cfg.Scheduler.WindowDays, a.cfg.Scheduler.Watchlist, a.pipeline)
				if err != nil {
					return err
				}
				res := sched.RunOnce(ctx)
				fmt.Println(res.String())
				if res.Refreshed == 0 && len(res.Errors) > 0 {
					return fmt.Errorf("every watchlist refresh failed")
				}
				return nil
			})
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("salesrisk %s\n", version)
		},
	}
}

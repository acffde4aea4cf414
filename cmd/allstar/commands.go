package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tyler180/allstar-rosters/internal/app/pipeline"
	"github.com/tyler180/allstar-rosters/internal/frame"
)

var (
	fromStore bool
	uploadRaw bool
	doAnalyze bool
	doPublish bool
	localSQL  bool
	rows      int
	fromTail  bool
)

var downloadCmd = &cobra.Command{
	Use:   "download [file...]",
	Short: "Download databank CSVs (all catalogued files when none are named)",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := svc.Download(cmd.Context(), args...)
		if err != nil {
			return err
		}
		for _, f := range res.Failed {
			fmt.Fprintf(os.Stderr, "failed: %s: %v\n", f.URL, f.Err)
		}
		if uploadRaw {
			return svc.UploadRaw(cmd.Context(), res.Saved)
		}
		return nil
	},
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the player-season table and export it as CSV and Parquet",
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := svc.Source(fromStore)
		if err != nil {
			return err
		}
		res, err := svc.Build(cmd.Context(), src)
		if err != nil {
			return err
		}
		out, err := svc.Export(res)
		if err != nil {
			return err
		}
		fmt.Println(out.MasterCSV)
		fmt.Println(out.MasterParquet)
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run [file...]",
	Short: "Download, build, export and optionally analyse and publish",
	RunE: func(cmd *cobra.Command, args []string) error {
		rep, err := svc.Run(cmd.Context(), pipeline.RunOptions{
			Files:     args,
			FromStore: fromStore,
			UploadRaw: uploadRaw,
			Analyze:   doAnalyze,
			Publish:   doPublish,
		})
		if err != nil {
			return err
		}
		fmt.Printf("rows=%d downloaded=%d failed=%d took=%s\n", rep.MasterRows, rep.Downloaded, rep.Failed, rep.Took)
		return nil
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Write correlations, plots and comparative statistics for the built table",
	RunE: func(cmd *cobra.Command, args []string) error {
		master, err := svc.LoadMaster()
		if err != nil {
			return err
		}
		rep, err := svc.Analyze(cmd.Context(), master)
		if err != nil {
			return err
		}
		fmt.Printf("top fields: %s\n", strings.Join(rep.TopFields, ", "))
		fmt.Printf("plots=%d data=%d\n", len(rep.Plots), len(rep.Data))
		return nil
	},
}

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish the built table to S3, Athena, DynamoDB and Postgres",
	RunE: func(cmd *cobra.Command, args []string) error {
		master, err := svc.LoadMaster()
		if err != nil {
			return err
		}
		out, err := svc.Publish(cmd.Context(), master)
		if err != nil {
			return err
		}
		fmt.Printf("s3=%s athena_rows=%d dynamo_items=%d postgres_rows=%d\n",
			out.ParquetKey, out.AthenaRows, out.DynamoItems, out.PostgresRows)
		return nil
	},
}

var queryCmd = &cobra.Command{
	Use:   "query <count|sample|position-rate|year-summary|SQL>",
	Short: "Run a canned report or SQL against Athena, or locally with --local",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := svc.Query(cmd.Context(), strings.Join(args, " "), localSQL)
		if err != nil {
			return err
		}
		return f.WriteCSV(os.Stdout)
	},
}

var viewershipCmd = &cobra.Command{
	Use:   "viewership [url|file]",
	Short: "Compare early and recent All-Star game TV viewership",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src := ""
		if len(args) == 1 {
			src = args[0]
		}
		f, err := svc.Viewership(cmd.Context(), src)
		if err != nil {
			return err
		}
		return f.WriteCSV(os.Stdout)
	},
}

var stroopCmd = &cobra.Command{
	Use:   "stroop <csv>",
	Short: "Summarise a Stroop experiment and run the paired t-test",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := svc.Stroop(args[0])
		if err != nil {
			return err
		}
		fmt.Println(res)
		return nil
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Print the first (or last, with --tail) rows of the built table",
	RunE: func(cmd *cobra.Command, args []string) error {
		master, err := svc.LoadMaster()
		if err != nil {
			return err
		}
		if fromTail {
			return master.Tail(rows).WriteCSV(os.Stdout)
		}
		return master.Head(rows).WriteCSV(os.Stdout)
	},
}

var tallyCmd = &cobra.Command{
	Use:   "tally <column>",
	Short: "Count the values of a column of the built table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		master, err := svc.LoadMaster()
		if err != nil {
			return err
		}
		counts, err := master.ValueCounts(args[0])
		if err != nil {
			return err
		}
		return counts.WriteCSV(os.Stdout)
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <text>",
	Short: "List the columns of the built table containing text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		master, err := svc.LoadMaster()
		if err != nil {
			return err
		}
		cols := master.ColumnsContaining(args[0])
		if len(cols) == 0 {
			return fmt.Errorf("%q not found in any column", args[0])
		}
		for _, c := range cols {
			fmt.Println(c)
		}
		return nil
	},
}

var seasonCmd = &cobra.Command{
	Use:   "season <year> [column...]",
	Short: "Read one season from the DynamoDB serving table",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		year, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("year %q: %w", args[0], err)
		}
		f, err := svc.Season(cmd.Context(), year, args[1:]...)
		if err != nil {
			return err
		}
		return f.WriteCSV(os.Stdout)
	},
}

var blobCmd = &cobra.Command{
	Use:   "blob",
	Short: "Copy files to and from the data bucket",
}

var blobPutCmd = &cobra.Command{
	Use:   "put <file> <key>",
	Short: "Upload a file below the configured prefix",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if svc.Store == nil {
			return pipeline.ErrNoBucket
		}
		return svc.Store.PutFile(cmd.Context(), svc.Store.Key(args[1]), args[0], "")
	},
}

var blobGetCmd = &cobra.Command{
	Use:   "get <key> <file>",
	Short: "Download an object below the configured prefix",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if svc.Store == nil {
			return pipeline.ErrNoBucket
		}
		return svc.Store.GetFile(cmd.Context(), svc.Store.Key(args[0]), args[1])
	},
}

var blobPutCSVCmd = &cobra.Command{
	Use:   "put-master <key>",
	Short: "Upload the built table as CSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if svc.Store == nil {
			return pipeline.ErrNoBucket
		}
		master, err := svc.LoadMaster()
		if err != nil {
			return err
		}
		return svc.Store.PutCSV(cmd.Context(), svc.Store.Key(frame.ForceExtension(args[0], "csv")), master)
	},
}

func init() {
	downloadCmd.Flags().BoolVar(&uploadRaw, "upload", false, "Also copy the files to <prefix>/databank/ in the data bucket")

	buildCmd.Flags().BoolVar(&fromStore, "from-store", false, "Read raw CSVs from the data bucket instead of the download directory")

	runCmd.Flags().BoolVar(&fromStore, "from-store", false, "Skip the download and read raw CSVs from the data bucket")
	runCmd.Flags().BoolVar(&uploadRaw, "upload", false, "Copy downloaded CSVs to the data bucket")
	runCmd.Flags().BoolVar(&doAnalyze, "analyze", false, "Write the analysis report")
	runCmd.Flags().BoolVar(&doPublish, "publish", false, "Publish to every configured target")

	queryCmd.Flags().BoolVar(&localSQL, "local", false, "Query the local Parquet export with DuckDB")

	previewCmd.Flags().IntVarP(&rows, "rows", "n", 5, "Rows to print")
	previewCmd.Flags().BoolVar(&fromTail, "tail", false, "Print the last rows instead of the first")

	blobCmd.AddCommand(blobPutCmd, blobGetCmd, blobPutCSVCmd)
	rootCmd.AddCommand(downloadCmd, buildCmd, runCmd, analyzeCmd, publishCmd, queryCmd,
		viewershipCmd, stroopCmd, previewCmd, tallyCmd, searchCmd, seasonCmd, blobCmd)
}

package cmd

import (
	"sort"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/nsxbet/geoqc/pkg/geometry"
	"github.com/nsxbet/geoqc/pkg/reviewer"
	"github.com/nsxbet/geoqc/pkg/types"
)

var tablesCmd = &cobra.Command{
	Use:   "tables [flags] <dbname> <schema> <user> <password>",
	Short: "List the spatial tables of a schema with their geometry types",
	Args:  cobra.ExactArgs(4),
	RunE:  runTables,
}

func init() {
	rootCmd.AddCommand(tablesCmd)

	flags := tablesCmd.Flags()
	flags.String("host", "localhost", "database host")
	flags.Int("port", 5432, "database port")
	flags.String("sslmode", "disable", "database SSL mode")
}

func runTables(cmd *cobra.Command, args []string) error {
	log, err := newLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	conn := &cfg.Vector.Connection
	conn.Database, cfg.Vector.Schema, conn.User, conn.Password = args[0], args[1], args[2], args[3]
	conn.Host, _ = cmd.Flags().GetString("host")
	conn.Port, _ = cmd.Flags().GetInt("port")
	conn.SSLMode, _ = cmd.Flags().GetString("sslmode")

	ctx := cmd.Context()
	db, err := geometry.Connect(ctx, *conn, log.GetSlogLogger())
	if err != nil {
		return fatal(err)
	}
	defer func() { _ = db.Close() }()

	infos, err := reviewer.New(types.DomainVector).
		WithConfigObject(cfg).
		WithLogger(log.GetSlogLogger()).
		Inventory(ctx, geometry.NewInspector(db, log.GetSlogLogger()))
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.SetTitle(cfg.Vector.Schema)
	t.AppendHeader(table.Row{"Table", "Geometry column", "Declared type", "Rows", "Geometry types"})
	var total int64
	for _, info := range infos {
		t.AppendRow(table.Row{info.Table.Name, info.Table.GeometryColumn, info.Table.GeometryType, info.Rows, typeCounts(info)})
		total += info.Rows
	}
	t.AppendFooter(table.Row{len(infos), "", "", total, ""})
	t.Render()
	return nil
}

func typeCounts(info *geometry.TableInfo) string {
	names := make([]string, 0, len(info.Types))
	for name := range info.Types {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + "=" + strconv.FormatInt(info.Types[name], 10)
	}
	return strings.Join(parts, " ")
}

package cmd

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nsxbet/geoqc/pkg/config"
	"github.com/nsxbet/geoqc/pkg/geometry"
	"github.com/nsxbet/geoqc/pkg/reviewer"
	"github.com/nsxbet/geoqc/pkg/types"
)

var vectorCmd = &cobra.Command{
	Use:   "vector [flags] <dbname> <schema> <user> <password> <output-dir>",
	Short: "Check the spatial tables of a PostGIS schema against quality rules",
	Long: `Check every table registered in geometry_columns for a schema and
write the report to the output directory.

Intersections between tables are offenses unless the admissibility file
allows them. The file maps a table to the tables it may intersect:

  roads: [rivers, railways]
  carto.buildings: [carto.parcels]`,
	Args: cobra.ExactArgs(5),
	RunE: runVector,
}

func init() {
	rootCmd.AddCommand(vectorCmd)

	// Flags for vector command
	flags := vectorCmd.Flags()
	flags.StringP("control", "c", string(types.RuleAll), "rule to apply (invalid, duplicate, multipart, intersect, null, aall)")
	flags.String("host", "localhost", "database host")
	flags.Int("port", 5432, "database port")
	flags.String("sslmode", "disable", "database SSL mode")
	flags.String("summary", "summary", "detail of the text report (none, summary, full)")
	flags.String("admissibles", "", "YAML or JSON file of admissible intersections")
	flags.Bool("symmetric-admissibles", false, "an admissible pair also admits the reverse direction")
	flags.Bool("strict-admissibles", false, "report admissible intersections that are not point or line contacts at vertices")

	// Bind flags to viper
	for _, name := range []string{
		"control", "host", "port", "sslmode", "summary",
		"admissibles", "symmetric-admissibles", "strict-admissibles",
	} {
		_ = viper.BindPFlag("vector."+name, flags.Lookup(name))
	}
}

func runVector(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyVectorFlags(cfg, args); err != nil {
		return fatal(err)
	}

	r, err := prepare(cmd, cfg, types.DomainVector)
	if err != nil {
		return err
	}

	rv := r.reviewer()
	policy, err := rv.LoadPolicy()
	if err != nil {
		return fatal(err)
	}

	ctx := cmd.Context()
	slogger := r.log.GetSlogLogger()
	db, err := geometry.Connect(ctx, cfg.Vector.Connection, slogger)
	if err != nil {
		return fatal(err)
	}
	defer func() { _ = db.Close() }()
	r.log.Debug("starting vector review", "schema", cfg.Vector.Schema, "controls", cfg.Controls)

	opts := append(r.options(), reviewer.WithPolicy(policy))
	result, err := rv.ReviewSchema(ctx, geometry.NewInspector(db, slogger), opts...)
	return r.finish(ctx, result, err)
}

func applyVectorFlags(cfg *config.Config, args []string) error {
	conn := &cfg.Vector.Connection
	conn.Database = args[0]
	cfg.Vector.Schema = args[1]
	conn.User = args[2]
	conn.Password = args[3]
	cfg.Report.Dir = args[4]

	if viper.IsSet("vector.control") {
		rule, err := types.ParseRule(viper.GetString("vector.control"))
		if err != nil {
			return errors.Wrap(config.ErrInvalidConfig, err.Error())
		}
		cfg.Controls = []types.Rule{rule}
	}
	if viper.IsSet("vector.host") {
		conn.Host = viper.GetString("vector.host")
	}
	if viper.IsSet("vector.port") {
		conn.Port = viper.GetInt("vector.port")
	}
	if viper.IsSet("vector.sslmode") {
		conn.SSLMode = viper.GetString("vector.sslmode")
	}
	if viper.IsSet("vector.summary") {
		cfg.Report.Verbosity = viper.GetString("vector.summary")
	}
	if viper.IsSet("vector.admissibles") {
		cfg.Vector.Admissibles = viper.GetString("vector.admissibles")
	}
	if viper.IsSet("vector.symmetric-admissibles") {
		cfg.Vector.SymmetricAdmissibles = viper.GetBool("vector.symmetric-admissibles")
	}
	if viper.IsSet("vector.strict-admissibles") {
		cfg.Vector.StrictAdmissibles = viper.GetBool("vector.strict-admissibles")
	}
	return nil
}

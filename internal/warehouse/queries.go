package warehouse

import (
	"fmt"
	"strings"

	"github.com/tyler180/allstar-rosters/internal/export"
)

// BuildDrop returns a DROP TABLE IF EXISTS for db.table.
func BuildDrop(db, table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS `%s`.`%s`", db, table)
}

// BuildCreateExternal registers a parquet prefix as an external table.
// location is an s3:// prefix ending in /.
func BuildCreateExternal(db, table string, cols []export.Column, location string) string {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = fmt.Sprintf("  `%s` %s", c.Name, c.Type)
	}
	if !strings.HasSuffix(location, "/") {
		location += "/"
	}
	return fmt.Sprintf("CREATE EXTERNAL TABLE `%s`.`%s` (\n%s\n)\nSTORED AS PARQUET\nLOCATION '%s'\nTBLPROPERTIES ('parquet.compression'='SNAPPY')",
		db, table, strings.Join(defs, ",\n"), location)
}

// BuildCount counts rows of a table or view.
func BuildCount(from string) string {
	return fmt.Sprintf(`SELECT COUNT(*) AS c FROM %s`, from)
}

// BuildSample returns the first n player seasons by key.
func BuildSample(from string, n int) string {
	return fmt.Sprintf(`SELECT bb_key, full_name, team_name, primary_position, allstar_flag
FROM %s
ORDER BY bb_key
LIMIT %d`, from, n)
}

// BuildAllStarRateByPosition is the share of player seasons selected as
// All-Stars per primary position.
func BuildAllStarRateByPosition(from string) string {
	return fmt.Sprintf(`
SELECT
  primary_position,
  COUNT(*)                                                 AS player_seasons,
  SUM(CASE WHEN allstar_flag THEN 1 ELSE 0 END)            AS allstars,
  ROUND(AVG(CASE WHEN allstar_flag THEN 1.0 ELSE 0.0 END), 4) AS allstar_rate
FROM %s
WHERE primary_position IS NOT NULL
GROUP BY primary_position
ORDER BY allstar_rate DESC, primary_position
`, from)
}

// BuildYearSummary counts player seasons, All-Stars and postseason
// appearances per season.
func BuildYearSummary(from string) string {
	return fmt.Sprintf(`
SELECT
  year_id,
  COUNT(*)                                                  AS player_seasons,
  SUM(CASE WHEN allstar_flag THEN 1 ELSE 0 END)             AS allstars,
  SUM(CASE WHEN player_postseason_flag THEN 1 ELSE 0 END)   AS postseason_players
FROM %s
GROUP BY year_id
ORDER BY year_id
`, from)
}

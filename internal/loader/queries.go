package loader

// The rank log id starts with YYYYMMDD, so `rl.id >= ?` is an index range scan on
// (rank_id, id). Wrapping the id in SUBSTRING would force a full table scan.
const (
	rankLogsQuery = `
		SELECT rl.id, rl.map_id, rl.rank_id, m.mode_id
		FROM rank_logs rl
		LEFT JOIN _maps m ON rl.map_id = m.id
		WHERE rl.rank_id >= ? AND rl.id >= ?`

	battleLogsQuery = `
		SELECT bl.id, bl.rank_log_id
		FROM battle_logs bl
		JOIN rank_logs rl ON bl.rank_log_id = rl.id
		WHERE rl.rank_id >= ? AND rl.id >= ?`

	participantsQuery = `
		SELECT bp.battle_log_id, bp.side, bp.brawler_id
		FROM battle_participants bp
		JOIN battle_logs bl ON bp.battle_log_id = bl.id
		JOIN rank_logs rl ON bl.rank_log_id = rl.id
		WHERE rl.rank_id >= ? AND rl.id >= ?`

	starLogsQuery = `
		SELECT rsl.rank_log_id, rsl.star_brawler_id
		FROM rank_star_logs rsl
		JOIN rank_logs rl ON rsl.rank_log_id = rl.id
		WHERE rl.rank_id >= ? AND rl.id >= ?`

	mapsQuery     = `SELECT id, name, name_ja, mode_id FROM _maps`
	modesQuery    = `SELECT id, name, name_ja FROM _modes`
	ranksQuery    = `SELECT id, name, name_ja FROM _ranks`
	brawlersQuery = `SELECT id, name FROM _brawlers`

	rankMatchCountsQuery = `
		SELECT r.id, r.name, r.name_ja, COUNT(rl.id) AS rank_log_count
		FROM _ranks r
		LEFT JOIN rank_logs rl ON r.id = rl.rank_id
		WHERE r.id >= ?
		GROUP BY r.id, r.name, r.name_ja
		ORDER BY r.id`

	highestRankPlayersQuery = `
		SELECT name
		FROM players
		WHERE highest_rank = ?
		  AND name IS NOT NULL
		  AND name <> ''
		ORDER BY name`

	monitoredPlayersQuery = `
		SELECT tag, name, highest_rank, current_rank
		FROM players
		WHERE is_monitored = 1`

	monitoredBattlesQuery = `
		SELECT bp.player_tag, bp.battle_log_id, bl.rank_log_id, rl.map_id, bp.brawler_id, bp.side
		FROM battle_participants bp
		JOIN players p ON p.tag = bp.player_tag
		JOIN battle_logs bl ON bl.id = bp.battle_log_id
		JOIN rank_logs rl ON rl.id = bl.rank_log_id
		WHERE p.is_monitored = 1`
)

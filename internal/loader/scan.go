package loader

import (
	"github.com/brawlstats/statsagg/internal/models"
	"github.com/brawlstats/statsagg/internal/storage"
)

// Integers are scanned as int64: every backend converts its integer columns to
// int64, while narrower Go types are rejected by some drivers.

type battleRef struct {
	id      string
	matchID string
}

func optionalInt(v *int64) *int {
	if v == nil {
		return nil
	}
	i := int(*v)
	return &i
}

func scanMatch(r storage.Rows) (models.Match, error) {
	var (
		m             models.Match
		mapID, rankID int64
		modeID        *int64
	)
	if err := r.Scan(&m.ID, &mapID, &rankID, &modeID); err != nil {
		return m, err
	}
	m.MapID = int(mapID)
	m.RankID = int(rankID)
	m.ModeID = optionalInt(modeID)
	return m, nil
}

func scanBattleRef(r storage.Rows) (battleRef, error) {
	var b battleRef
	err := r.Scan(&b.id, &b.matchID)
	return b, err
}

func scanParticipant(r storage.Rows) (models.Participant, error) {
	var (
		p         models.Participant
		brawlerID int64
	)
	if err := r.Scan(&p.BattleID, &p.Side, &brawlerID); err != nil {
		return p, err
	}
	p.BrawlerID = int(brawlerID)
	return p, nil
}

func scanStar(r storage.Rows) (models.StarLog, error) {
	var (
		s         models.StarLog
		brawlerID int64
	)
	if err := r.Scan(&s.MatchID, &brawlerID); err != nil {
		return s, err
	}
	s.BrawlerID = int(brawlerID)
	return s, nil
}

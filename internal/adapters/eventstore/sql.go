package eventstore

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/pawlik/clickarena/internal/domain/model"
)

// scanRedemptions reads redemption rows shared by the SQL backends.
func scanRedemptions(rows *sql.Rows) ([]model.RedemptionRecord, error) {
	var out []model.RedemptionRecord
	for rows.Next() {
		var (
			rec      model.RedemptionRecord
			kind     string
			openedAt int64
		)
		if err := rows.Scan(&rec.ID, &rec.PlayerID, &rec.ContainerID, &kind, &rec.Value, &rec.IsRare, &openedAt); err != nil {
			return nil, fmt.Errorf("scan redemption: %w", err)
		}
		rec.Kind = model.OutcomeKind(kind)
		rec.OpenedAt = time.UnixMilli(openedAt)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("redemption rows: %w", err)
	}
	return out, nil
}

package oracles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Oracle struct {
	Name string
	SQL  string
}

func All() []Oracle {
	return []Oracle{
		{
			Name: "O1_unique_match_pair",
			SQL: `SELECT lost_item_id, found_item_id, COUNT(*) FROM matches
                  GROUP BY lost_item_id, found_item_id HAVING COUNT(*) > 1`,
		},
		{
			Name: "O2_accepted_cascade",
			SQL: `SELECT m.id FROM matches m
                  JOIN lost_items l ON l.id = m.lost_item_id
                  WHERE m.status = 'accepted' AND l.status <> 'reclaimed'
                  UNION ALL
                  SELECT m.id FROM matches m
                  JOIN found_items f ON f.id = m.found_item_id
                  WHERE m.status = 'accepted' AND f.status <> 'returned'`,
		},
		{
			Name: "O3_loser_denormalised",
			SQL: `SELECT m.id FROM matches m
                  JOIN lost_items l ON l.id = m.lost_item_id
                  WHERE m.loser_id <> l.owner_id`,
		},
		{
			Name: "O4_reclaimed_has_accepted",
			SQL: `SELECT l.id FROM lost_items l
                  WHERE l.status = 'reclaimed'
                    AND NOT EXISTS (SELECT 1 FROM matches m
                                    WHERE m.lost_item_id = l.id AND m.status = 'accepted')`,
		},
		{
			Name: "O5_returned_has_accepted",
			SQL: `SELECT f.id FROM found_items f
                  WHERE f.status = 'returned'
                    AND NOT EXISTS (SELECT 1 FROM matches m
                                    WHERE m.found_item_id = f.id AND m.status = 'accepted')`,
		},
		{
			Name: "O6_match_categories_agree",
			SQL: `SELECT m.id FROM matches m
                  JOIN lost_items l ON l.id = m.lost_item_id
                  JOIN found_items f ON f.id = m.found_item_id
                  WHERE l.category <> f.category`,
		},
		{
			Name: "O7_notification_owner",
			SQL: `SELECT n.id FROM notifications n
                  JOIN matches m ON m.id = n.match_id
                  WHERE n.user_id NOT IN (m.loser_id, COALESCE(m.finder_id, n.user_id))`,
		},
	}
}

// Run executes all oracles and returns the first failure (name and sample row text) or empty name if all pass.
func Run(ctx context.Context, pool *pgxpool.Pool) (string, string, error) {
	for _, o := range All() {
		rows, err := pool.Query(ctx, o.SQL)
		if err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
		has := rows.Next()
		if has {
			vals, err := rows.Values()
			rows.Close()
			if err != nil {
				return o.Name, "", err
			}
			return o.Name, fmt.Sprintf("%v", vals), nil
		}
		rows.Close()
	}
	return "", "", nil
}

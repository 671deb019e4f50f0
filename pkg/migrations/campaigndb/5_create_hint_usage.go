package campaigndb

import (
	"context"
	"log"

	"github.com/uptrace/bun"

	"github.com/chainsafe/advent-agent/pkg/campaignstore"
	mghelper "github.com/chainsafe/advent-agent/pkg/pgutil/migrations"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating hint_usage table...")
		return mghelper.CreateSchema(ctx, db, &campaignstore.HintUsageDao{})
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping hint_usage table...")
		return mghelper.DropTables(ctx, db, &campaignstore.HintUsageDao{})
	})
}

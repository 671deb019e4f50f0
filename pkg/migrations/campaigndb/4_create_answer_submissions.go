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
		log.Println("creating answer_submissions table...")
		if err := mghelper.CreateSchema(ctx, db, &campaignstore.AnswerSubmissionDao{}); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, &campaignstore.AnswerSubmissionDao{}, "is_correct")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping answer_submissions table...")
		return mghelper.DropTables(ctx, db, &campaignstore.AnswerSubmissionDao{})
	})
}

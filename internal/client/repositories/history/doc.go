// Package history is the upload journal: one row per task run with the
// files it declared, its server session and how it ended.
//
// The journal is informational. It is written as tasks progress and read by
// the CLI's history command; nothing resumes from it.
//
//	repo := history.NewSQLiteRepository(db)
//	_ = repo.Begin(ctx, rec)
//	_ = repo.SetSession(ctx, rec.RunID, sessionID)
//	_ = repo.Finish(ctx, rec.RunID, models.StateCompleted, sent, "")
//	runs, _ := repo.List(ctx, 20)
package history

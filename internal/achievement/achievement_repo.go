package achievement

import (
	"context"

	"github.com/pkg/errors"
	"github.com/pot-code/learnhub/internal/infrastructure/driver"
)

type AchievementRepositoryImpl struct {
	Conn driver.ITransactionalDB
}

var _ AchievementRepository = &AchievementRepositoryImpl{}

func NewAchievementRepository(Conn driver.ITransactionalDB) *AchievementRepositoryImpl {
	return &AchievementRepositoryImpl{Conn}
}

func (repo *AchievementRepositoryImpl) Unlock(ctx context.Context, userID, code, scope string) (bool, error) {
	res, err := repo.Conn.ExecContext(ctx, `INSERT INTO user_achievements(user_id, achievement_id, scope, unlocked_at)
	SELECT $1, a.id, $3, NOW() FROM achievements a WHERE a.code=$2
	ON CONFLICT (user_id, achievement_id, scope) DO NOTHING`, userID, code, scope)
	if err != nil {
		return false, errors.Wrap(err, "unlock achievement")
	}
	n, err := res.RowsAffected()
	return n > 0, errors.Wrap(err, "unlock achievement")
}

func (repo *AchievementRepositoryImpl) List(ctx context.Context, userID string) ([]*UserAchievement, error) {
	rows, err := repo.Conn.QueryContext(ctx, `SELECT a.code, a.title, a.description, ua.scope, ua.unlocked_at
	FROM user_achievements ua JOIN achievements a ON a.id = ua.achievement_id
	WHERE ua.user_id=$1
	ORDER BY ua.unlocked_at DESC`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "query achievements")
	}
	defer rows.Close()

	var result []*UserAchievement
	for rows.Next() {
		ua := new(UserAchievement)
		if err := rows.Scan(&ua.Code, &ua.Title, &ua.Description, &ua.Scope, &ua.UnlockedAt); err != nil {
			return nil, errors.Wrap(err, "scan achievement")
		}
		result = append(result, ua)
	}
	return result, errors.Wrap(rows.Err(), "query achievements")
}

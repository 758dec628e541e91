package app

import (
	"github.com/Amund211/esportsync/internal/config"
	"github.com/Amund211/esportsync/internal/domain"
)

// BuildPlan lists one task per game and resource, games outermost, in scope order
func BuildPlan(scope config.SyncScope) []domain.SyncTask {
	tasks := make([]domain.SyncTask, 0, len(scope.Games)*len(scope.Resources))
	for _, game := range scope.Games {
		for _, resource := range scope.Resources {
			tasks = append(tasks, domain.SyncTask{Game: game, Resource: resource})
		}
	}
	return tasks
}

package stats

import (
	"github.com/aleister1102/pagewatch/internal/models"
)

// Aggregate derives summary statistics for a job from its own counters and
// the records currently retained in its ledger. Purely derived; holds no
// state of its own.
func Aggregate(job models.Job, records []models.ChangeRecord) models.JobStats {
	stats := models.JobStats{
		JobID:            job.ID,
		Status:           job.Status,
		CreatedAt:        job.CreatedAt,
		LastCheck:        job.LastCheck,
		TotalChecks:      job.TotalChecks,
		ChangesDetected:  job.ChangesDetected,
		RetainedChanges:  len(records),
		ErrorMessage:     job.ErrorMessage,
		ChangeTypeCounts: make(map[models.ChangeType]int),
	}

	seen := make(map[string]struct{})
	for _, record := range records {
		stats.ChangeTypeCounts[record.Type]++

		if record.Annotation == nil {
			continue
		}
		stats.AnnotatedCount++
		for _, entity := range record.Annotation.Entities {
			if entity.Name == "" {
				continue
			}
			if _, ok := seen[entity.Name]; ok {
				continue
			}
			seen[entity.Name] = struct{}{}
			stats.EntitiesDetected = append(stats.EntitiesDetected, entity.Name)
		}
	}

	return stats
}

package seed

import (
	"fmt"

	"github.com/BLOSSOM1234321/aurawell-sub002/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BuiltInGroup is a permanent system support group.
type BuiltInGroup struct {
	Name        string
	Slug        string
	Description string
}

// BuiltInGroups defines the permanent system support groups.
var BuiltInGroups = []BuiltInGroup{
	{Name: "Anxiety & Stress", Slug: "anxiety", Description: "Managing anxiety, stress, and overwhelm day to day."},
	{Name: "Grief & Loss", Slug: "grief", Description: "Support through bereavement and loss."},
	{Name: "New Parents", Slug: "new-parents", Description: "The first years of parenthood, together."},
	{Name: "Chronic Illness", Slug: "chronic-illness", Description: "Living well with long-term conditions."},
	{Name: "Sobriety", Slug: "sobriety", Description: "Recovery and staying sober, one day at a time."},
	{Name: "Caregivers", Slug: "caregivers", Description: "Caring for a loved one without losing yourself."},
	{Name: "Sleep & Burnout", Slug: "burnout", Description: "Rest, recovery, and sustainable routines."},
	{Name: "Mindful Eating", Slug: "mindful-eating", Description: "A healthier relationship with food."},
}

// SupportGroups seeds the permanent built-in support groups. Safe to run on
// every boot: existing groups are updated in place, never duplicated.
func SupportGroups(db *gorm.DB) error {
	for _, item := range BuiltInGroups {
		group := models.SupportGroup{
			Name:        item.Name,
			Slug:        item.Slug,
			Description: item.Description,
		}

		if err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "description", "updated_at"}),
		}).Create(&group).Error; err != nil {
			return fmt.Errorf("seed built-in support group %s: %w", item.Slug, err)
		}
	}

	return nil
}

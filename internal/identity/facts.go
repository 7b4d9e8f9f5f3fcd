package identity

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// SetFact records a time-invariant claim about a person. If no active
// fact exists for (personID, key), the new value becomes active. A
// same-value reconfirmation just bumps LastConfirmed/Confidence. A
// higher-confidence contradicting value immediately retires the old
// active fact and replaces it. A lower-or-equal-confidence
// contradicting value is logged but does not yet replace anything —
// only once the same contradicting value has been observed on two
// distinct calendar days does it retire the old fact and take over.
// Writes for a given person serialize behind that person's advisory
// lock so concurrent extraction tasks can't race each other.
func (s *Store) SetFact(ctx context.Context, personID uint64, key, value string, confidence float64, sourceType, sourceRef, sourceQuote string) error {
	lock := s.lockFor(personID)
	lock.Lock()
	defer lock.Unlock()

	now := time.Now()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var active Fact
		err := tx.Where("person_id = ? AND key = ? AND status = ?", personID, key, FactStatusActive).
			First(&active).Error

		if err == gorm.ErrRecordNotFound {
			return tx.Create(&Fact{
				PersonID: personID, Key: key, Value: value, Confidence: confidence,
				SourceType: sourceType, SourceRef: sourceRef, SourceQuote: sourceQuote,
				Status: FactStatusActive, FirstSeen: now, LastConfirmed: now,
			}).Error
		}
		if err != nil {
			return err
		}

		if active.Value == value {
			updates := map[string]interface{}{"last_confirmed": now}
			if confidence > active.Confidence {
				updates["confidence"] = confidence
			}
			return tx.Model(&Fact{}).Where("id = ?", active.ID).Updates(updates).Error
		}

		if confidence > active.Confidence {
			if err := tx.Model(&Fact{}).Where("id = ?", active.ID).Update("status", FactStatusRetired).Error; err != nil {
				return err
			}
			return tx.Create(&Fact{
				PersonID: personID, Key: key, Value: value, Confidence: confidence,
				SourceType: sourceType, SourceRef: sourceRef, SourceQuote: sourceQuote,
				Status: FactStatusActive, FirstSeen: now, LastConfirmed: now,
			}).Error
		}

		// Lower- or equal-confidence contradiction: log it as a retired
		// row immediately, then check whether this exact contradicting
		// value has now been seen on two distinct calendar days.
		if err := tx.Create(&Fact{
			PersonID: personID, Key: key, Value: value, Confidence: confidence,
			SourceType: sourceType, SourceRef: sourceRef, SourceQuote: sourceQuote,
			Status: FactStatusRetired, FirstSeen: now, LastConfirmed: now,
		}).Error; err != nil {
			return err
		}

		var contradictions []Fact
		if err := tx.Where("person_id = ? AND key = ? AND value = ? AND status = ?",
			personID, key, value, FactStatusRetired).Find(&contradictions).Error; err != nil {
			return err
		}
		days := map[string]bool{}
		for _, f := range contradictions {
			days[f.FirstSeen.Format("2006-01-02")] = true
		}
		if len(days) < 2 {
			return nil
		}

		if err := tx.Model(&Fact{}).Where("id = ?", active.ID).Update("status", FactStatusRetired).Error; err != nil {
			return err
		}
		// Promote the most recent contradicting observation to active.
		latest := contradictions[0]
		for _, f := range contradictions {
			if f.LastConfirmed.After(latest.LastConfirmed) {
				latest = f
			}
		}
		return tx.Model(&Fact{}).Where("id = ?", latest.ID).Update("status", FactStatusActive).Error
	})
}

// FactsFor returns every active fact known about a person.
func (s *Store) FactsFor(ctx context.Context, personID uint64) ([]Fact, error) {
	var facts []Fact
	err := s.db.WithContext(ctx).
		Where("person_id = ? AND status = ?", personID, FactStatusActive).
		Order("key").Find(&facts).Error
	return facts, err
}

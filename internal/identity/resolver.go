package identity

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Identifiers are the channel-supplied hints FindOrCreatePerson uses
// to resolve or create a person. ChannelID is the source-qualified
// contact id (e.g. a WhatsApp JID) keyed by channel name.
type Identifiers struct {
	Channel   string // e.g. "whatsapp"
	ChannelID string
	Phone     string
	Email     string
}

// FindOrCreatePerson resolves name+identifiers to a person id,
// creating a new person if none matches. The identifier cascade tries
// phone, then email, then channel id, then alias/name match, in that
// order — the first hit wins. When an identifier collides with a
// person different from the one a later identifier would resolve to,
// the two are merged (the older, lower-id person absorbs the newer
// one). An ambiguous name-only match returns the most recently
// updated candidate. This always returns a valid person id.
func (s *Store) FindOrCreatePerson(ctx context.Context, name string, ids Identifiers) (uint64, error) {
	var resolved uint64
	var found bool

	if ids.Phone != "" {
		if pid, ok := s.lookupByPhone(ctx, ids.Phone); ok {
			resolved, found = pid, true
		}
	}
	if ids.Email != "" {
		if pid, ok := s.lookupByEmail(ctx, ids.Email); ok {
			if found && pid != resolved {
				resolved, _ = s.mergeInto(ctx, resolved, pid)
			} else if !found {
				resolved, found = pid, true
			}
		}
	}
	if ids.ChannelID != "" {
		if pid, ok := s.lookupByChannelID(ctx, ids.Channel, ids.ChannelID); ok {
			if found && pid != resolved {
				resolved, _ = s.mergeInto(ctx, resolved, pid)
			} else if !found {
				resolved, found = pid, true
			}
		}
	}
	if !found && name != "" {
		if pid, ok := s.lookupByName(ctx, name); ok {
			resolved, found = pid, true
		}
	}

	if found {
		if err := s.attachIdentifiers(ctx, resolved, name, ids); err != nil {
			return 0, err
		}
		s.ClearCaches()
		return resolved, nil
	}

	return s.createPerson(ctx, name, ids)
}

func (s *Store) lookupByPhone(ctx context.Context, phone string) (uint64, bool) {
	if pid, ok := s.caches.byPhone.Get(phone); ok {
		return pid, true
	}
	var p Person
	if err := s.db.WithContext(ctx).Where("phone = ?", phone).First(&p).Error; err != nil {
		return 0, false
	}
	s.caches.byPhone.Add(phone, p.ID)
	return p.ID, true
}

func (s *Store) lookupByEmail(ctx context.Context, email string) (uint64, bool) {
	if pid, ok := s.caches.byEmail.Get(email); ok {
		return pid, true
	}
	var p Person
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&p).Error; err != nil {
		return 0, false
	}
	s.caches.byEmail.Add(email, p.ID)
	return p.ID, true
}

func (s *Store) lookupByChannelID(ctx context.Context, channel, channelID string) (uint64, bool) {
	cacheKey := channel + ":" + channelID
	if pid, ok := s.caches.byChannelID.Get(cacheKey); ok {
		return pid, true
	}
	var candidates []Person
	if err := s.db.WithContext(ctx).Where("channel_ids LIKE ?", "%\""+channelID+"\"%").Find(&candidates).Error; err != nil {
		return 0, false
	}
	for _, p := range candidates {
		m := decodeChannelIDs(p.ChannelIDs)
		if m[channel] == channelID {
			s.caches.byChannelID.Add(cacheKey, p.ID)
			return p.ID, true
		}
	}
	return 0, false
}

// lookupByName matches canonical_name or any alias. When more than
// one person matches, the most recently updated one wins — ambiguous
// first names resolve to whoever was most recently active.
func (s *Store) lookupByName(ctx context.Context, name string) (uint64, bool) {
	if pid, ok := s.caches.byName.Get(name); ok {
		return pid, true
	}
	var candidates []Person
	err := s.db.WithContext(ctx).
		Where("canonical_name = ? OR aliases LIKE ?", name, "%\""+name+"\"%").
		Order("updated_at DESC").
		Find(&candidates).Error
	if err != nil || len(candidates) == 0 {
		return 0, false
	}
	best := candidates[0]
	for _, p := range candidates {
		m := decodeAliases(p.Aliases)
		if p.CanonicalName == name || containsString(m, name) {
			best = p
			break
		}
	}
	s.caches.byName.Add(name, best.ID)
	return best.ID, true
}

// ResolveByName looks up a person by canonical name or alias without
// creating one on a miss — the entity-linking step of a retrieval
// query must never mint a new person just because its name happened
// to appear in a question.
func (s *Store) ResolveByName(ctx context.Context, name string) (uint64, bool) {
	if name == "" {
		return 0, false
	}
	return s.lookupByName(ctx, name)
}

func (s *Store) createPerson(ctx context.Context, name string, ids Identifiers) (uint64, error) {
	now := time.Now()
	p := Person{
		CanonicalName: name,
		Phone:         ids.Phone,
		Email:         ids.Email,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if ids.Channel != "" && ids.ChannelID != "" {
		p.ChannelIDs = encodeChannelIDs(map[string]string{ids.Channel: ids.ChannelID})
	}
	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		return 0, err
	}
	s.ClearCaches()
	return p.ID, nil
}

// attachIdentifiers records any identifier on ids not yet present on
// the resolved person (a new phone number, a new alias for a name
// variant, a new channel id) and bumps updated_at.
func (s *Store) attachIdentifiers(ctx context.Context, personID uint64, name string, ids Identifiers) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p Person
		if err := tx.First(&p, personID).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{}
		if ids.Phone != "" && p.Phone == "" {
			updates["phone"] = ids.Phone
		}
		if ids.Email != "" && p.Email == "" {
			updates["email"] = ids.Email
		}
		if ids.Channel != "" && ids.ChannelID != "" {
			m := decodeChannelIDs(p.ChannelIDs)
			if m[ids.Channel] != ids.ChannelID {
				m[ids.Channel] = ids.ChannelID
				updates["channel_ids"] = encodeChannelIDs(m)
			}
		}
		if name != "" && name != p.CanonicalName {
			aliases := decodeAliases(p.Aliases)
			if !containsString(aliases, name) {
				aliases = append(aliases, name)
				updates["aliases"] = encodeAliases(aliases)
			}
		}
		if len(updates) == 0 {
			return nil
		}
		updates["updated_at"] = time.Now()
		return tx.Model(&Person{}).Where("id = ?", personID).Updates(updates).Error
	})
}

// mergeInto merges the newer person into the older (lower id) one,
// all-or-nothing in a single transaction: the newer person's facts,
// relationships, asset links, phone/email/channel ids and aliases are
// reparented onto the survivor, and the newer row is deleted.
func (s *Store) mergeInto(ctx context.Context, a, b uint64) (uint64, error) {
	survivor, absorbed := a, b
	if absorbed < survivor {
		survivor, absorbed = absorbed, survivor
	}
	if survivor == absorbed {
		return survivor, nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var keep, drop Person
		if err := tx.First(&keep, survivor).Error; err != nil {
			return err
		}
		if err := tx.First(&drop, absorbed).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{}
		if keep.Phone == "" && drop.Phone != "" {
			updates["phone"] = drop.Phone
		}
		if keep.Email == "" && drop.Email != "" {
			updates["email"] = drop.Email
		}
		mergedChannels := decodeChannelIDs(keep.ChannelIDs)
		for k, v := range decodeChannelIDs(drop.ChannelIDs) {
			if _, ok := mergedChannels[k]; !ok {
				mergedChannels[k] = v
			}
		}
		updates["channel_ids"] = encodeChannelIDs(mergedChannels)

		aliases := decodeAliases(keep.Aliases)
		if drop.CanonicalName != "" && !containsString(aliases, drop.CanonicalName) {
			aliases = append(aliases, drop.CanonicalName)
		}
		for _, al := range decodeAliases(drop.Aliases) {
			if !containsString(aliases, al) {
				aliases = append(aliases, al)
			}
		}
		updates["aliases"] = encodeAliases(aliases)
		updates["updated_at"] = time.Now()
		if err := tx.Model(&Person{}).Where("id = ?", survivor).Updates(updates).Error; err != nil {
			return err
		}

		if err := tx.Model(&Fact{}).Where("person_id = ?", absorbed).Update("person_id", survivor).Error; err != nil {
			return err
		}
		if err := tx.Model(&Relationship{}).Where("person_a = ?", absorbed).Update("person_a", survivor).Error; err != nil {
			return err
		}
		if err := tx.Model(&Relationship{}).Where("person_b = ?", absorbed).Update("person_b", survivor).Error; err != nil {
			return err
		}

		var links []PersonAsset
		if err := tx.Where("person_id = ?", absorbed).Find(&links).Error; err != nil {
			return err
		}
		for _, l := range links {
			var count int64
			tx.Model(&PersonAsset{}).Where("person_id = ? AND asset_ref = ? AND role = ?", survivor, l.AssetRef, l.Role).Count(&count)
			if count > 0 {
				tx.Delete(&l)
				continue
			}
			tx.Model(&PersonAsset{}).Where("id = ?", l.ID).Update("person_id", survivor)
		}

		return tx.Delete(&Person{}, absorbed).Error
	})
	if err != nil {
		return 0, err
	}
	return survivor, nil
}

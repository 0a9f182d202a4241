package domain

// The validators below are pure checks run right before a mutation is handed
// to the store. Callers perform the lookups and pass plain values in.

// ValidateLocationOwner rejects owners that are not consumers.
func ValidateLocationOwner(owner User) error {
	if owner.Role != RoleConsumer {
		return ErrOwnerMustBeConsumer
	}
	return nil
}

// ValidateLocationDeletable rejects deleting a location that still has meters.
func ValidateLocationDeletable(_ Location, meterCount int64) error {
	if meterCount > 0 {
		return ErrLocationHasMeters
	}
	return nil
}

// ValidateReadingTransition requires the new reading to be strictly greater
// than the current one.
func ValidateReadingTransition(oldReading, newReading float64) error {
	if !(newReading > oldReading) {
		return ErrReadingMustIncrease
	}
	return nil
}

// DeriveUnit returns the unit a meter of type t reports in.
func DeriveUnit(t MeterType) Unit {
	return unitByType[t]
}

// ValidateSelfDeleteGuard rejects a principal deleting their own account.
func ValidateSelfDeleteGuard(actingUserID, targetUserID int64) error {
	if actingUserID == targetUserID {
		return ErrCannotDeleteSelf
	}
	return nil
}

// ValidateRoleChange rejects moving a consumer who still owns locations to
// another role, since location owners must be consumers.
func ValidateRoleChange(user User, newRole Role, ownedLocations int64) error {
	if user.Role == RoleConsumer && newRole != RoleConsumer && ownedLocations > 0 {
		return ErrOwnerMustBeConsumer
	}
	return nil
}

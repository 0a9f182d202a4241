package mongo

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/utilityops/meter-api/internal/core/policy"
)

// matchNothing is a filter no document satisfies. Scopes that make no sense
// for a collection compile to it so they deny instead of leaking.
var matchNothing = bson.M{"_id": bson.M{"$exists": false}}

// userFilter compiles scope into a filter over the users collection.
func userFilter(scope policy.Scope) bson.M {
	switch scope.Kind {
	case policy.ScopeUnrestricted:
		return bson.M{}
	case policy.ScopeOwnedBy:
		return bson.M{"_id": scope.UserID}
	case policy.ScopeRoleEquals:
		if scope.IncludeID != 0 {
			return bson.M{"$or": bson.A{
				bson.M{"role": string(scope.Role)},
				bson.M{"_id": scope.IncludeID},
			}}
		}
		return bson.M{"role": string(scope.Role)}
	}
	return matchNothing
}

// locationFilter compiles scope into a filter over the locations collection.
func locationFilter(scope policy.Scope) bson.M {
	switch scope.Kind {
	case policy.ScopeUnrestricted:
		return bson.M{}
	case policy.ScopeOwnedBy:
		return bson.M{"owner_id": scope.UserID}
	}
	return matchNothing
}

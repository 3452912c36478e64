package mongodb

import (
	"errors"

	"github.com/ArowuTest/crashrace-backend/internal/apperrors"
	"go.mongodb.org/mongo-driver/mongo"
)

// translate maps driver errors onto application errors. A missing document
// becomes notFound (when given); everything else is a retryable storage failure.
func translate(op string, err error, notFound *apperrors.Error) error {
	if err == nil {
		return nil
	}
	if notFound != nil && errors.Is(err, mongo.ErrNoDocuments) {
		return notFound
	}
	return apperrors.Unavailable(op, err)
}

// onlyDuplicateKeyErrors reports whether every write error in a bulk
// exception is a unique index violation.
func onlyDuplicateKeyErrors(bwe mongo.BulkWriteException) bool {
	if bwe.WriteConcernError != nil || len(bwe.WriteErrors) == 0 {
		return false
	}
	for _, we := range bwe.WriteErrors {
		if we.Code != 11000 {
			return false
		}
	}
	return true
}

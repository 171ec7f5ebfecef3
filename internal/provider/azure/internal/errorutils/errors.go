// Copyright 2020 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package errorutils

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/juju/collections/set"
	"github.com/juju/errors"

	"github.com/juju/vmmigrate/core/migration"
)

// quotaCodes are the error codes Azure answers with when a request
// would exceed a subscription or regional limit.
var quotaCodes = set.NewStrings(
	"QuotaExceeded",
	"OperationNotAllowed",
	"SkuNotAvailable",
	"PublicIPCountLimitReached",
	"NetworkInterfaceCountLimitReached",
)

// referenceCodes are the error codes Azure answers with when a request
// refers to a resource that does not exist.
var referenceCodes = set.NewStrings(
	"NotFound",
	"ResourceNotFound",
	"InvalidResourceReference",
	"LinkedInvalidPropertyId",
	"NetworkInterfaceNotFound",
	"PublicIPAddressNotFound",
)

// ResponseError returns the Azure response error in err's chain, if any.
func ResponseError(err error) (*azcore.ResponseError, bool) {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return respErr, true
	}
	return nil, false
}

// ErrorCode returns the Azure error code of err, or the empty string.
func ErrorCode(err error) string {
	if respErr, ok := ResponseError(err); ok {
		return respErr.ErrorCode
	}
	return ""
}

// IsNotFoundError returns true if the error is
// caused by a not found error.
func IsNotFoundError(err error) bool {
	if respErr, ok := ResponseError(err); ok {
		return respErr.StatusCode == http.StatusNotFound
	}
	return false
}

// IsConflictError returns true if the error is
// caused by a conflict error.
func IsConflictError(err error) bool {
	if respErr, ok := ResponseError(err); ok {
		return respErr.StatusCode == http.StatusConflict
	}
	return false
}

// IsAuthorisationFailure returns true if the credential was rejected or
// lacks the permissions for the request.
func IsAuthorisationFailure(err error) bool {
	if respErr, ok := ResponseError(err); ok {
		return respErr.StatusCode == http.StatusUnauthorized ||
			respErr.StatusCode == http.StatusForbidden
	}
	return false
}

// IsQuotaExceeded returns true if the request was rejected because of a
// subscription limit.
func IsQuotaExceeded(err error) bool {
	respErr, ok := ResponseError(err)
	if !ok {
		return false
	}
	if !quotaCodes.Contains(respErr.ErrorCode) {
		return false
	}
	// OperationNotAllowed is also used for reasons other than quota.
	if respErr.ErrorCode == "OperationNotAllowed" {
		return strings.Contains(strings.ToLower(Message(err)), "quota")
	}
	return true
}

// IsMissingReference returns true if the request referred to a resource
// that does not exist.
func IsMissingReference(err error) bool {
	if IsNotFoundError(err) {
		return true
	}
	return referenceCodes.Contains(ErrorCode(err))
}

type serviceError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Message returns a one line description of err. Azure response errors
// are reduced to their error code and message; other errors are
// returned as is.
func Message(err error) string {
	respErr, ok := ResponseError(err)
	if !ok {
		return err.Error()
	}
	var body serviceError
	if respErr.RawResponse != nil {
		_ = runtime.UnmarshalAsJSON(respErr.RawResponse, &body)
	}
	code := respErr.ErrorCode
	if code == "" {
		code = body.Error.Code
	}
	if code == "" {
		code = http.StatusText(respErr.StatusCode)
	}
	if body.Error.Message == "" {
		return fmt.Sprintf("%s (%d)", code, respErr.StatusCode)
	}
	return fmt.Sprintf("%s: %s", code, body.Error.Message)
}

// Classify annotates err with the action that failed and tags it with
// the migration error kind it represents. A request the control plane
// answered is a ProvisioningError, unless it failed because of a
// missing referenced resource, which is a DependencyError. A request
// that never got an answer is a TransportError. Cancellation is passed
// through untagged.
func Classify(err error, action string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return errors.Annotate(err, action)
	}
	if _, ok := ResponseError(err); !ok {
		return migration.WithKind(errors.Annotate(err, action), migration.TransportError)
	}
	annotated := errors.Wrap(err, errors.Errorf("%s: %s", action, Message(err)))
	if IsMissingReference(err) {
		return migration.WithKind(annotated, migration.DependencyError)
	}
	return migration.WithKind(annotated, migration.ProvisioningError)
}

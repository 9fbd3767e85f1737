package session

import (
	"fmt"
	"strings"
)

// deviceSegment builds the "{board}-{DEVICE_ID}" path segment every
// per-device URL is rooted at (spec.md §6). The device id is upper-cased,
// matching the original firmware's wire contract.
func deviceSegment(board, deviceID string) string {
	return fmt.Sprintf("%s-%s", board, strings.ToUpper(deviceID))
}

// baseURL builds the base poll path: GET {root}/{board}-{device_id}.
func baseURL(root, board, deviceID string) string {
	return fmt.Sprintf("%s/%s", root, deviceSegment(board, deviceID))
}

// configDataURL builds the config-data PUT path.
func configDataURL(root, board, deviceID string) string {
	return fmt.Sprintf("%s/configData", baseURL(root, board, deviceID))
}

// cancelFeedbackURL builds the cancel-acknowledgement POST path.
func cancelFeedbackURL(root, board, deviceID, cancelPath string) string {
	return fmt.Sprintf("%s/%s/feedback", baseURL(root, board, deviceID), cancelPath)
}

// deploymentURL builds the deployment GET path.
func deploymentURL(root, board, deviceID, deploymentPath string) string {
	return fmt.Sprintf("%s/%s", baseURL(root, board, deviceID), deploymentPath)
}

// deploymentFeedbackURL builds the deployment-report POST path.
func deploymentFeedbackURL(root, board, deviceID string, actionID int32) string {
	return fmt.Sprintf("%s/deploymentBase/%d/feedback", baseURL(root, board, deviceID), actionID)
}

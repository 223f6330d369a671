package mqtt

import "fmt"

// Topic layout shared by dispatcher and vehicles. Assignment messages are
// addressed per vehicle; position reports share one topic.
const (
	PositionTopic          = "fleet/positions"
	assignmentTopicPattern = "fleet/vehicle/+/assignment"
)

// AssignmentTopic returns the assignment topic for one vehicle.
func AssignmentTopic(vehicleID int) string {
	return fmt.Sprintf("fleet/vehicle/%d/assignment", vehicleID)
}

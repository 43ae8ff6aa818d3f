package workflow

import "fmt"

// JobStatus is the outreach status stored on a job row.
type JobStatus string

const (
	JobDraftCreated JobStatus = "draft_created"
	JobSent         JobStatus = "sent"
	JobFollowUp1    JobStatus = "follow_up_1"
	JobFollowUp2    JobStatus = "follow_up_2"

	// JobReplied is accepted when reading rows but no event leads into or
	// out of it.
	JobReplied JobStatus = "replied"
)

// JobStatuses returns every job status in workflow order.
func JobStatuses() []JobStatus {
	return []JobStatus{JobDraftCreated, JobSent, JobFollowUp1, JobFollowUp2, JobReplied}
}

// ParseJobStatus validates a raw status value.
func ParseJobStatus(s string) (JobStatus, bool) {
	for _, status := range JobStatuses() {
		if string(status) == s {
			return status, true
		}
	}
	return "", false
}

// JobEvent is something that moves a job between statuses.
type JobEvent string

const (
	// JobSend is reported by the automation once the email has gone out.
	JobSend JobEvent = "send"

	JobScheduleFollowUp1 JobEvent = "schedule_follow_up_1"
	JobScheduleFollowUp2 JobEvent = "schedule_follow_up_2"
)

// Jobs is the outreach state machine. Follow-ups only move forward; a
// follow-up may be scheduled before the automation has confirmed the send.
var Jobs = NewMachine("job", []Transition[JobStatus, JobEvent]{
	{From: JobDraftCreated, Event: JobSend, To: JobSent},

	{From: JobDraftCreated, Event: JobScheduleFollowUp1, To: JobFollowUp1},
	{From: JobSent, Event: JobScheduleFollowUp1, To: JobFollowUp1},

	{From: JobDraftCreated, Event: JobScheduleFollowUp2, To: JobFollowUp2},
	{From: JobSent, Event: JobScheduleFollowUp2, To: JobFollowUp2},
	{From: JobFollowUp1, Event: JobScheduleFollowUp2, To: JobFollowUp2},
})

// FollowUpEvent maps a follow-up number to its scheduling event.
func FollowUpEvent(n int) (JobEvent, error) {
	switch n {
	case 1:
		return JobScheduleFollowUp1, nil
	case 2:
		return JobScheduleFollowUp2, nil
	default:
		return "", fmt.Errorf("follow-up number must be 1 or 2, got %d", n)
	}
}

// CanSendEmail reports whether the send-email webhook may be triggered for a
// job in status s.
func CanSendEmail(s JobStatus) bool {
	return s == JobDraftCreated
}

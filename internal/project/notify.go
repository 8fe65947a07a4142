package project

import (
	"fmt"
	"strings"

	"github.com/alecgard/huddle/internal/auth"
	"github.com/alecgard/huddle/internal/message"
)

// Notification kinds, used as metric labels.
const (
	noticeJoinRequested   = "join_requested"
	noticeJoinRejected    = "join_rejected"
	noticeStakeholderLeft = "stakeholder_left"
)

// ProjectURL is the detail link embedded in notifications.
func ProjectURL(publicURL, projectID string) string {
	return strings.TrimRight(publicURL, "/") + "/projects/" + projectID
}

func joinRequestedNotice(p *Project, requester *auth.User, publicURL string) message.SendInput {
	return message.SendInput{
		SenderID:    requester.ID,
		RecipientID: p.OwnerID,
		Subject:     "Join Request for " + p.Name,
		Body: fmt.Sprintf("%s has requested to join your project '%s'.\nView project: %s",
			requester.Username, p.Name, ProjectURL(publicURL, p.ID)),
	}
}

func joinRejectedNotice(p *Project, owner *auth.User, jr *JoinRequest) message.SendInput {
	return message.SendInput{
		SenderID:    owner.ID,
		RecipientID: jr.RequestingUserID,
		Subject:     "Join Request for " + p.Name + " Rejected",
		Body: fmt.Sprintf("Hello %s,\n\nYour request to join the project '%s' has been rejected by the project owner.\n\n"+
			"Please contact the project owner if you have any questions.",
			jr.RequestingUsername, p.Name),
	}
}

func stakeholderLeftNotice(p *Project, leaver *auth.User) message.SendInput {
	return message.SendInput{
		SenderID:    leaver.ID,
		RecipientID: p.OwnerID,
		Subject:     "Stakeholder Left: " + leaver.Username,
		Body: fmt.Sprintf("Hello %s,\n\nThis is to inform you that %s has left your project '%s'.\n\n"+
			"Regards,\nYour Project Management System",
			p.OwnerUsername, leaver.Username, p.Name),
	}
}

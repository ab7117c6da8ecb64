package respond

import "gated_chat_server/internal/model"

// RelationshipRespond 关系
type RelationshipRespond struct {
	RelationshipId string `json:"relationship_id"`
	SenderId       string `json:"sender_id"`
	ReceiverId     string `json:"receiver_id"`
	Status         string `json:"status"`
}

func NewRelationshipRespond(r *model.Relationship) RelationshipRespond {
	return RelationshipRespond{
		RelationshipId: r.Uuid,
		SenderId:       r.SenderId,
		ReceiverId:     r.ReceiverId,
		Status:         string(r.Status),
	}
}

// FollowRespond 关注边
type FollowRespond struct {
	FollowerId  string `json:"follower_id"`
	FollowingId string `json:"following_id"`
	Status      string `json:"status"`
	IsMutual    bool   `json:"is_mutual"`
}

func NewFollowRespond(f *model.Follow) FollowRespond {
	return FollowRespond{
		FollowerId:  f.FollowerId,
		FollowingId: f.FollowingId,
		Status:      string(f.Status),
		IsMutual:    f.IsMutual,
	}
}

// FollowStatusRespond 两人之间的关注状态
type FollowStatusRespond struct {
	P1FollowsP2 bool `json:"p1_follows_p2"`
	P2FollowsP1 bool `json:"p2_follows_p1"`
}

// FollowListRespond 关注列表
type FollowListRespond struct {
	ProfileIds []string `json:"profile_ids"`
}

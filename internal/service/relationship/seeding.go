package relationship

import "gated_chat_server/internal/model"

// SeedInput 计算初始关系状态所需的全部输入
type SeedInput struct {
	P1FollowsP2 bool // 发起方关注对方（含待通过）
	P2FollowsP1 bool // 对方关注发起方（含待通过）
	P1Private   bool
	P2Private   bool

	// SharedConnection 双方互不关注时，是否存在共同的关注联系人
	SharedConnection bool
	// RequesterHasFollowSignal 发起方在这对之外存在任何关注关系
	RequesterHasFollowSignal bool
	// EitherAccepted 任意一方的关注已通过
	EitherAccepted bool
}

type cell int8

// x 表示任意
const (
	x cell = iota
	y
	n
)

func (c cell) match(v bool) bool {
	return c == x || (c == y) == v
}

type seedRule struct {
	p1FollowsP2, p2FollowsP1 cell
	p1Private, p2Private     cell
	status                   model.RelationshipStatus // 为空表示走回退规则
}

// seedTable 自上而下匹配第一条
var seedTable = []seedRule{
	{y, x, n, n, model.RelationshipAccepted},
	{y, x, y, n, model.RelationshipAccepted},
	{y, x, n, y, model.RelationshipPending},
	{y, x, y, y, model.RelationshipPending},
	{x, y, n, n, model.RelationshipAccepted},
	{x, y, n, y, model.RelationshipPending},
	{x, y, y, n, model.RelationshipAccepted},
	{x, y, y, y, model.RelationshipPending},
	{n, n, x, x, ""},
}

// SeedStatus 根据关注和私密状态计算新关系的初始状态，纯函数
func SeedStatus(in SeedInput) model.RelationshipStatus {
	status := lookup(in)
	if in.RequesterHasFollowSignal {
		status = model.RelationshipPending
	}
	if in.EitherAccepted && !in.P1Private && !in.P2Private {
		status = model.RelationshipAccepted
	}
	return status
}

func lookup(in SeedInput) model.RelationshipStatus {
	for _, rule := range seedTable {
		if !rule.p1FollowsP2.match(in.P1FollowsP2) || !rule.p2FollowsP1.match(in.P2FollowsP1) ||
			!rule.p1Private.match(in.P1Private) || !rule.p2Private.match(in.P2Private) {
			continue
		}
		if rule.status != "" {
			return rule.status
		}
		break
	}
	switch {
	case !in.SharedConnection:
		return model.RelationshipHidden
	case in.P1Private || in.P2Private:
		return model.RelationshipPending
	default:
		return model.RelationshipAccepted
	}
}

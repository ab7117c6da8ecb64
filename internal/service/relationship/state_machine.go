package relationship

import (
	"context"

	"gated_chat_server/internal/dao/mysql/repository"
	"gated_chat_server/internal/model"
	"gated_chat_server/pkg/errorx"
)

// maxCASAttempts 并发修改时重读重试的次数
const maxCASAttempts = 3

// transitions 合法迁移表，未列出的一律拒绝
var transitions = map[model.RelationshipStatus]map[model.RelationshipStatus]bool{
	model.RelationshipPending: {
		model.RelationshipAccepted: true,
		model.RelationshipBlocked:  true,
		model.RelationshipDeleted:  true,
	},
	model.RelationshipHidden: {
		model.RelationshipPending: true,
		model.RelationshipBlocked: true,
		model.RelationshipDeleted: true,
	},
	model.RelationshipAccepted: {
		model.RelationshipBlocked: true,
		model.RelationshipDeleted: true,
	},
	model.RelationshipBlocked: {
		model.RelationshipDeleted: true,
	},
	model.RelationshipDeleted: {
		model.RelationshipPending: true,
	},
}

// CanTransition 同状态写入视为合法的空操作
func CanTransition(from, to model.RelationshipStatus) bool {
	return from == to || transitions[from][to]
}

func checkTransition(from, to model.RelationshipStatus) error {
	if !to.Valid() {
		return errorx.Newf(errorx.CodeInvalidParam, "unknown relationship status %q", to)
	}
	if !CanTransition(from, to) {
		return errorx.Newf(errorx.CodeInvalidTransition, "relationship cannot move from %s to %s", from, to)
	}
	return nil
}

// MoveTo 以比较并交换的方式迁移状态，被并发修改时重读后按新状态重新校验
func MoveTo(ctx context.Context, repo repository.RelationshipRepository, rel *model.Relationship, to model.RelationshipStatus) (*model.Relationship, error) {
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		if rel.Status == to {
			return rel, nil
		}
		if err := checkTransition(rel.Status, to); err != nil {
			return nil, err
		}
		ok, err := repo.CompareAndSetStatus(ctx, rel.Uuid, rel.Status, to)
		if err != nil {
			return nil, err
		}
		if ok {
			rel.Status = to
			return rel, nil
		}
		if rel, err = repo.FindBetween(ctx, rel.SenderId, rel.ReceiverId); err != nil {
			return nil, err
		}
	}
	return nil, errorx.Newf(errorx.CodeConflict, "relationship %s changed concurrently", rel.Uuid)
}

// Reopen 将 deleted / hidden 的关系原地恢复为 pending，发起方改为 senderId
// 其余状态按普通迁移处理
func Reopen(ctx context.Context, repo repository.RelationshipRepository, rel *model.Relationship, senderId, receiverId string) (*model.Relationship, error) {
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		if rel.Status != model.RelationshipDeleted && rel.Status != model.RelationshipHidden {
			return MoveTo(ctx, repo, rel, model.RelationshipPending)
		}
		ok, err := repo.CompareAndReopen(ctx, rel.Uuid, rel.Status, senderId, receiverId)
		if err != nil {
			return nil, err
		}
		if ok {
			rel.Status = model.RelationshipPending
			rel.SenderId, rel.ReceiverId = senderId, receiverId
			return rel, nil
		}
		if rel, err = repo.FindBetween(ctx, senderId, receiverId); err != nil {
			return nil, err
		}
	}
	return nil, errorx.Newf(errorx.CodeConflict, "relationship %s changed concurrently", rel.Uuid)
}

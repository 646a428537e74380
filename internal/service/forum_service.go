package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"learnhub/internal/domain"
	"learnhub/internal/models"
	"learnhub/internal/repository"
)

// Broadcaster fans forum events out to live clients of a course.
type Broadcaster interface {
	BroadcastToCourse(courseID uint, event string, payload interface{})
}

const (
	EventQuestionCreated = "forum.question.created"
	EventQuestionUpdated = "forum.question.updated"
	EventAnswerCreated   = "forum.answer.created"
	EventReplyCreated    = "forum.reply.created"
	EventContentDeleted  = "forum.content.deleted"
)

type ForumService struct {
	tx       repository.TxRunner
	forum    repository.ForumStore
	courses  repository.CourseStore
	access   *EnrollmentService
	notifier Notifier
	hub      Broadcaster
	now      func() time.Time
}

func NewForumService(tx repository.TxRunner, forum repository.ForumStore, courses repository.CourseStore, access *EnrollmentService, notifier Notifier, hub Broadcaster) *ForumService {
	return &ForumService{tx: tx, forum: forum, courses: courses, access: access, notifier: notifier, hub: hub, now: time.Now}
}

// ---- views ----

type QuestionView struct {
	ID               uint                `json:"id"`
	CourseID         uint                `json:"course_id"`
	Title            string              `json:"title"`
	Body             string              `json:"body"`
	IsLocked         bool                `json:"is_locked"`
	IsSolved         bool                `json:"is_solved"`
	AcceptedAnswerID *uint               `json:"accepted_answer_id"`
	AnswerCount      int                 `json:"answer_count"`
	IsDeleted        bool                `json:"is_deleted"`
	User             *models.UserSummary `json:"user"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

type AnswerView struct {
	ID         uint                `json:"id"`
	QuestionID uint                `json:"question_id"`
	Body       string              `json:"body"`
	IsAccepted bool                `json:"is_accepted"`
	IsDeleted  bool                `json:"is_deleted"`
	User       *models.UserSummary `json:"user"`
	CreatedAt  time.Time           `json:"created_at"`
	Replies    []*ReplyNode        `json:"replies"`
}

// ReplyNode is one reply with its nested children.
type ReplyNode struct {
	ID         uint                `json:"id"`
	QuestionID uint                `json:"question_id"`
	AnswerID   uint                `json:"answer_id"`
	ParentID   *uint               `json:"parent_id"`
	ReplyText  string              `json:"reply_text"`
	IsDeleted  bool                `json:"is_deleted"`
	User       *models.UserSummary `json:"user"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
	Children   []*ReplyNode        `json:"children"`
}

type ThreadView struct {
	Question    QuestionView `json:"question"`
	Answers     []AnswerView `json:"answers"`
	CanModerate bool         `json:"can_moderate"`
}

func summary(u *models.User) *models.UserSummary {
	if u == nil {
		return nil
	}
	s := u.Summary()
	return &s
}

func questionView(q *models.ForumQuestion) QuestionView {
	v := QuestionView{
		ID:               q.ID,
		CourseID:         q.CourseID,
		Title:            q.Title,
		Body:             q.Body,
		IsLocked:         q.IsLocked,
		IsSolved:         q.IsSolved,
		AcceptedAnswerID: q.AcceptedAnswerID,
		AnswerCount:      q.AnswerCount,
		IsDeleted:        q.IsDeleted,
		User:             summary(q.User),
		CreatedAt:        q.CreatedAt,
		UpdatedAt:        q.UpdatedAt,
	}
	if q.IsDeleted {
		v.Title, v.Body, v.User = domain.DeletedPlaceholder, domain.DeletedPlaceholder, nil
	}
	return v
}

func replyNode(r *models.ForumReply) *ReplyNode {
	n := &ReplyNode{
		ID:         r.ID,
		QuestionID: r.QuestionID,
		AnswerID:   r.AnswerID,
		ParentID:   r.ParentID,
		ReplyText:  r.ReplyText,
		IsDeleted:  r.IsDeleted,
		User:       summary(r.User),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
		Children:   []*ReplyNode{},
	}
	if r.IsDeleted {
		n.ReplyText, n.User = domain.DeletedPlaceholder, nil
	}
	return n
}

// BuildReplyTrees groups replies by answer and nests them under their
// parents, keeping input order among siblings. Deleted replies stay in the
// tree as placeholders. A reply whose parent is missing is treated as top level.
func BuildReplyTrees(replies []models.ForumReply) map[uint][]*ReplyNode {
	nodes := make(map[uint]*ReplyNode, len(replies))
	for i := range replies {
		nodes[replies[i].ID] = replyNode(&replies[i])
	}
	roots := make(map[uint][]*ReplyNode)
	for i := range replies {
		r := &replies[i]
		n := nodes[r.ID]
		if r.ParentID != nil {
			if parent, ok := nodes[*r.ParentID]; ok && parent.AnswerID == r.AnswerID {
				parent.Children = append(parent.Children, n)
				continue
			}
		}
		roots[r.AnswerID] = append(roots[r.AnswerID], n)
	}
	return roots
}

// ---- reads ----

type QuestionPage struct {
	Items []QuestionView `json:"items"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

func (s *ForumService) ListQuestions(ctx context.Context, actor Actor, courseID uint, page, limit int) (*QuestionPage, error) {
	if _, err := s.access.RequireAccess(ctx, actor, courseID); err != nil {
		return nil, err
	}
	page, limit = pageDefaults(page, limit)
	list, total, err := s.forum.ListQuestions(ctx, courseID, page, limit)
	if err != nil {
		return nil, err
	}
	out := &QuestionPage{Items: make([]QuestionView, 0, len(list)), Total: total, Page: page, Limit: limit}
	for i := range list {
		out.Items = append(out.Items, questionView(&list[i]))
	}
	return out, nil
}

func (s *ForumService) GetThread(ctx context.Context, actor Actor, questionID uint) (*ThreadView, error) {
	q, c, err := s.question(ctx, actor, questionID)
	if err != nil {
		return nil, err
	}
	answers, err := s.forum.ListAnswers(ctx, questionID)
	if err != nil {
		return nil, err
	}
	replies, err := s.forum.ListReplies(ctx, questionID)
	if err != nil {
		return nil, err
	}
	trees := BuildReplyTrees(replies)
	t := &ThreadView{Question: questionView(q), Answers: make([]AnswerView, 0, len(answers)), CanModerate: actor.CanManage(c)}
	for i := range answers {
		a := &answers[i]
		v := AnswerView{
			ID:         a.ID,
			QuestionID: a.QuestionID,
			Body:       a.Body,
			IsAccepted: q.AcceptedAnswerID != nil && *q.AcceptedAnswerID == a.ID,
			IsDeleted:  a.IsDeleted,
			User:       summary(a.User),
			CreatedAt:  a.CreatedAt,
			Replies:    trees[a.ID],
		}
		if v.Replies == nil {
			v.Replies = []*ReplyNode{}
		}
		if a.IsDeleted {
			v.Body, v.User = domain.DeletedPlaceholder, nil
		}
		t.Answers = append(t.Answers, v)
	}
	return t, nil
}

// question loads a question and checks the actor may read its course.
func (s *ForumService) question(ctx context.Context, actor Actor, id uint) (*models.ForumQuestion, *models.Course, error) {
	q, err := s.forum.GetQuestion(ctx, id)
	if err != nil {
		return nil, nil, notFound(err)
	}
	c, err := s.access.RequireAccess(ctx, actor, q.CourseID)
	if err != nil {
		return nil, nil, err
	}
	return q, c, nil
}

// ---- writes ----

func (s *ForumService) CreateQuestion(ctx context.Context, actor Actor, courseID uint, title, body string) (*QuestionView, error) {
	if _, err := s.access.RequireAccess(ctx, actor, courseID); err != nil {
		return nil, err
	}
	title, body = strings.TrimSpace(title), strings.TrimSpace(body)
	if title == "" || body == "" {
		return nil, fmt.Errorf("%w: title and body are required", ErrInvalidInput)
	}
	q := &models.ForumQuestion{CourseID: courseID, UserID: actor.ID, Title: title, Body: body}
	if err := s.forum.CreateQuestion(ctx, q); err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}
	if full, err := s.forum.GetQuestion(ctx, q.ID); err == nil {
		q = full
	}
	v := questionView(q)
	s.broadcast(courseID, EventQuestionCreated, v)
	return &v, nil
}

func (s *ForumService) CreateAnswer(ctx context.Context, actor Actor, questionID uint, body string) (*AnswerView, error) {
	q, _, err := s.question(ctx, actor, questionID)
	if err != nil {
		return nil, err
	}
	if err := writable(q); err != nil {
		return nil, err
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("%w: body is required", ErrInvalidInput)
	}
	a := &models.ForumAnswer{QuestionID: q.ID, UserID: actor.ID, Body: body}
	err = s.tx.WithTx(ctx, func(st repository.Stores) error {
		if err := st.Forum().CreateAnswer(ctx, a); err != nil {
			return err
		}
		return st.Forum().AdjustAnswerCount(ctx, q.ID, 1)
	})
	if err != nil {
		return nil, fmt.Errorf("create answer: %w", err)
	}
	if full, err := s.forum.GetAnswer(ctx, a.ID); err == nil {
		a = full
	}
	v := AnswerView{ID: a.ID, QuestionID: a.QuestionID, Body: a.Body, User: summary(a.User), CreatedAt: a.CreatedAt, Replies: []*ReplyNode{}}
	if q.UserID != actor.ID {
		s.notify(ctx, q.UserID, domain.NotifNewAnswer, "New answer", "Someone answered your question \""+q.Title+"\"",
			map[string]interface{}{"question_id": q.ID, "answer_id": a.ID, "course_id": q.CourseID})
	}
	s.broadcast(q.CourseID, EventAnswerCreated, v)
	return &v, nil
}

// CreateReply adds a reply under an answer. When parentID is set the parent
// must be a live reply on the same question and answer.
func (s *ForumService) CreateReply(ctx context.Context, actor Actor, answerID uint, text string, parentID *uint) (*ReplyNode, error) {
	a, err := s.forum.GetAnswer(ctx, answerID)
	if err != nil {
		return nil, notFound(err)
	}
	if a.IsDeleted {
		return nil, ErrNotFound
	}
	q, _, err := s.question(ctx, actor, a.QuestionID)
	if err != nil {
		return nil, err
	}
	if err := writable(q); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: reply_text is required", ErrInvalidInput)
	}
	notifyUser := a.UserID
	if parentID != nil && *parentID == 0 {
		parentID = nil
	}
	if parentID != nil {
		parent, err := s.forum.GetReply(ctx, *parentID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidParent
		}
		if err != nil {
			return nil, err
		}
		if parent.QuestionID != a.QuestionID || parent.AnswerID != a.ID || parent.IsDeleted {
			return nil, ErrInvalidParent
		}
		notifyUser = parent.UserID
	}
	r := &models.ForumReply{
		QuestionID: a.QuestionID,
		AnswerID:   a.ID,
		ParentID:   parentID,
		UserID:     actor.ID,
		ReplyText:  text,
	}
	if err := s.forum.CreateReply(ctx, r); err != nil {
		return nil, fmt.Errorf("create reply: %w", err)
	}
	if full, err := s.forum.GetReply(ctx, r.ID); err == nil {
		r = full
	}
	n := replyNode(r)
	if notifyUser != actor.ID {
		s.notify(ctx, notifyUser, domain.NotifNewReply, "New reply", "Someone replied in \""+q.Title+"\"",
			map[string]interface{}{"question_id": q.ID, "answer_id": a.ID, "reply_id": r.ID, "course_id": q.CourseID})
	}
	s.broadcast(q.CourseID, EventReplyCreated, n)
	return n, nil
}

func writable(q *models.ForumQuestion) error {
	if q.IsDeleted {
		return ErrNotFound
	}
	if q.IsLocked {
		return ErrQuestionLocked
	}
	return nil
}

// ToggleLock flips the question's lock. Only the author or a moderator may.
func (s *ForumService) ToggleLock(ctx context.Context, actor Actor, questionID uint) (*QuestionView, error) {
	q, c, err := s.question(ctx, actor, questionID)
	if err != nil {
		return nil, err
	}
	if q.IsDeleted {
		return nil, ErrNotFound
	}
	if q.UserID != actor.ID && !actor.CanManage(c) {
		return nil, ErrForbidden
	}
	q.IsLocked = !q.IsLocked
	if err := s.forum.UpdateQuestion(ctx, q); err != nil {
		return nil, err
	}
	v := questionView(q)
	s.broadcast(q.CourseID, EventQuestionUpdated, v)
	return &v, nil
}

// ToggleSolve accepts answerID, or clears the acceptance when it is already
// the accepted answer.
func (s *ForumService) ToggleSolve(ctx context.Context, actor Actor, questionID, answerID uint) (*QuestionView, error) {
	q, c, err := s.question(ctx, actor, questionID)
	if err != nil {
		return nil, err
	}
	if q.IsDeleted {
		return nil, ErrNotFound
	}
	if q.UserID != actor.ID && !actor.CanManage(c) {
		return nil, ErrForbidden
	}
	a, err := s.forum.GetAnswer(ctx, answerID)
	if err != nil {
		return nil, notFound(err)
	}
	if a.QuestionID != q.ID || a.IsDeleted {
		return nil, fmt.Errorf("%w: answer does not belong to this question", ErrInvalidInput)
	}
	if q.AcceptedAnswerID != nil && *q.AcceptedAnswerID == answerID {
		q.AcceptedAnswerID = nil
		q.IsSolved = false
	} else {
		id := answerID
		q.AcceptedAnswerID = &id
		q.IsSolved = true
	}
	if err := s.forum.UpdateQuestion(ctx, q); err != nil {
		return nil, err
	}
	v := questionView(q)
	s.broadcast(q.CourseID, EventQuestionUpdated, v)
	return &v, nil
}

// Delete soft-deletes a question, answer or reply. Authors may delete their
// own posts; moderators may delete anything in their courses.
func (s *ForumService) Delete(ctx context.Context, actor Actor, targetType string, id uint, reason string) error {
	t, err := resolveTarget(ctx, s.forum, targetType, id)
	if err != nil {
		return err
	}
	if t.Deleted {
		return ErrAlreadyDeleted
	}
	c, err := s.courses.GetByID(ctx, t.CourseID)
	if err != nil {
		return notFound(err)
	}
	if t.UserID != actor.ID && !actor.CanManage(c) {
		return ErrForbidden
	}
	err = s.tx.WithTx(ctx, func(st repository.Stores) error {
		return softDeleteTarget(ctx, st.Forum(), targetType, id, actor.ID, strings.TrimSpace(reason), s.now())
	})
	if err != nil {
		return err
	}
	s.broadcast(t.CourseID, EventContentDeleted, map[string]interface{}{"target_type": targetType, "target_id": id})
	return nil
}

func (s *ForumService) notify(ctx context.Context, userID uint, kind, title, body string, data map[string]interface{}) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, userID, kind, title, body, data); err != nil {
		slog.WarnContext(ctx, "forum notification failed", "user_id", userID, "type", kind, "error", err)
	}
}

func (s *ForumService) broadcast(courseID uint, event string, payload interface{}) {
	if s.hub != nil {
		s.hub.BroadcastToCourse(courseID, event, payload)
	}
}

// ---- targets shared with moderation ----

// forumTarget is a post resolved from a (type, id) pair.
type forumTarget struct {
	Type       string
	ID         uint
	UserID     uint
	CourseID   uint
	QuestionID uint
	Deleted    bool
}

func resolveTarget(ctx context.Context, fs repository.ForumStore, targetType string, id uint) (*forumTarget, error) {
	t := &forumTarget{Type: targetType, ID: id}
	var questionID uint
	switch targetType {
	case domain.TargetQuestion:
		questionID = id
	case domain.TargetAnswer:
		a, err := fs.GetAnswer(ctx, id)
		if err != nil {
			return nil, notFound(err)
		}
		t.UserID, t.Deleted, questionID = a.UserID, a.IsDeleted, a.QuestionID
	case domain.TargetReply:
		r, err := fs.GetReply(ctx, id)
		if err != nil {
			return nil, notFound(err)
		}
		t.UserID, t.Deleted, questionID = r.UserID, r.IsDeleted, r.QuestionID
	default:
		return nil, fmt.Errorf("%w: unknown target type", ErrInvalidInput)
	}
	q, err := fs.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, notFound(err)
	}
	if targetType == domain.TargetQuestion {
		t.UserID, t.Deleted = q.UserID, q.IsDeleted
	}
	t.CourseID, t.QuestionID = q.CourseID, q.ID
	return t, nil
}

// softDeleteTarget flags a post deleted and keeps the answer counter and
// accepted answer consistent. Already deleted posts are left untouched.
func softDeleteTarget(ctx context.Context, fs repository.ForumStore, targetType string, id, by uint, reason string, now time.Time) error {
	switch targetType {
	case domain.TargetQuestion:
		q, err := fs.GetQuestion(ctx, id)
		if err != nil {
			return notFound(err)
		}
		if q.IsDeleted {
			return nil
		}
		q.MarkDeleted(by, reason, now)
		return fs.UpdateQuestion(ctx, q)
	case domain.TargetAnswer:
		a, err := fs.GetAnswer(ctx, id)
		if err != nil {
			return notFound(err)
		}
		if a.IsDeleted {
			return nil
		}
		a.MarkDeleted(by, reason, now)
		if err := fs.UpdateAnswer(ctx, a); err != nil {
			return err
		}
		if err := fs.AdjustAnswerCount(ctx, a.QuestionID, -1); err != nil {
			return err
		}
		q, err := fs.GetQuestion(ctx, a.QuestionID)
		if err != nil {
			return notFound(err)
		}
		if q.AcceptedAnswerID != nil && *q.AcceptedAnswerID == a.ID {
			q.AcceptedAnswerID = nil
			q.IsSolved = false
			return fs.UpdateQuestion(ctx, q)
		}
		return nil
	case domain.TargetReply:
		r, err := fs.GetReply(ctx, id)
		if err != nil {
			return notFound(err)
		}
		if r.IsDeleted {
			return nil
		}
		r.MarkDeleted(by, reason, now)
		return fs.UpdateReply(ctx, r)
	}
	return fmt.Errorf("%w: unknown target type", ErrInvalidInput)
}

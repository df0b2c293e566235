package model

import (
	"strings"
	"time"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusReturned Status = "returned"
)

type ActionKind string

const (
	ActionAdded   ActionKind = "added"
	ActionRemoved ActionKind = "removed"
	ActionUpdated ActionKind = "updated"
	ActionDeleted ActionKind = "deleted"
)

const (
	UserTypeAdmin   = "admin"
	UserTypeStudent = "student"
	UserTypeTeacher = "teacher"
)

// Date marshals as a bare yyyy-mm-dd day, the form the lending API speaks.
type Date struct {
	time.Time
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(time.DateOnly) + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		return nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return err
		}
	}
	d.Time = t
	return nil
}

type Book struct {
	ID        int64  `json:"-" db:"id"`
	BookUid   string `json:"bookUid" db:"book_uid"`
	Title     string `json:"title" db:"title"`
	Author    string `json:"author" db:"author"`
	Editor    string `json:"editor" db:"editor"`
	Isbn      string `json:"isbn" db:"isbn"`
	Available bool   `json:"available" db:"available"`
}

type User struct {
	ID       int64  `json:"-" db:"id"`
	UserUid  string `json:"userUid" db:"user_uid"`
	Username string `json:"username" db:"username"`
	FullName string `json:"fullName" db:"full_name"`
	Email    string `json:"email" db:"email"`
	Password string `json:"-" db:"password"`
	Type     string `json:"type" db:"type"`
}

type Lending struct {
	ID         int64     `json:"-" db:"id"`
	LendingUid string    `json:"lendingUid" db:"lending_uid"`
	BookID     int64     `json:"-" db:"book_id"`
	UserID     int64     `json:"-" db:"user_id"`
	StartDate  time.Time `json:"startDate" db:"start_date"`
	EndDate    time.Time `json:"endDate" db:"end_date"`
	Status     Status    `json:"status" db:"status"`
}

// LendingView is a lending with its book and user populated for list and
// search responses.
type LendingView struct {
	Lending
	Book Book `json:"book" db:"book"`
	User User `json:"user" db:"user"`
}

type ActionLog struct {
	ID          int64      `json:"-" db:"id"`
	Description string     `json:"description" db:"description"`
	Author      string     `json:"author" db:"author"`
	Action      ActionKind `json:"action" db:"action"`
	Date        *time.Time `json:"date" db:"date"`
}

type CreateLendingRequest struct {
	BookUid   string `json:"book" validate:"required,uuid"`
	UserUid   string `json:"user" validate:"required,uuid"`
	StartDate Date   `json:"startDate" validate:"required"`
	EndDate   Date   `json:"endDate" validate:"required"`
}

type ExtendLendingRequest struct {
	NewEndDate Date `json:"newEndDate" validate:"required"`
}

type LendingFilter struct {
	Status  Status
	UserUid string
	Page    int
	Limit   int
}

type ListLendings struct {
	Lendings []LendingView `json:"lendings"`
	Total    int           `json:"total"`
	Page     int           `json:"page"`
	LastPage int           `json:"lastPage"`
	HasNext  bool          `json:"hasNext"`
	HasPrev  bool          `json:"hasPrev"`
}

type CreateBookRequest struct {
	Title  string `json:"title" validate:"required"`
	Author string `json:"author" validate:"required"`
	Editor string `json:"editor" validate:"required"`
	Isbn   string `json:"isbn" validate:"required"`
}

type BookFilter struct {
	Availability *bool
	Query        string
	Page         int
	Limit        int
}

type ListBooks struct {
	Books    []Book `json:"books"`
	Total    int    `json:"total"`
	Page     int    `json:"page"`
	LastPage int    `json:"lastPage"`
}

type BookCount struct {
	Total     int `json:"total" db:"total"`
	Available int `json:"available" db:"available"`
}

type UserCreateRequest struct {
	Username string `json:"username" validate:"required"`
	FullName string `json:"fullName" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Type     string `json:"type" validate:"omitempty,oneof=admin student teacher"`
}

type UserUpdateRequest struct {
	Username string `json:"username" validate:"omitempty"`
	FullName string `json:"fullName" validate:"omitempty"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"omitempty,min=6"`
	Type     string `json:"type" validate:"omitempty,oneof=admin student teacher"`
}

type ListUsers struct {
	Users    []User `json:"users"`
	Total    int    `json:"total"`
	Page     int    `json:"page"`
	LastPage int    `json:"lastPage"`
}

type AuthRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	// ExpiresIn is the token lifetime in seconds.
	ExpiresIn   int    `json:"expiresIn"`
	AccessToken string `json:"accessToken"`
}

type CleanupResponse struct {
	Message      string `json:"message"`
	DeletedCount int64  `json:"deletedCount"`
}

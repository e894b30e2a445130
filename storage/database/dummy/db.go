package dummydb

import (
	"sync"

	"github.com/learnflow/backend/core/account"
	"github.com/learnflow/backend/core/approval"
	"github.com/learnflow/backend/core/otp"
)

type (
	DB struct {
		account      *accountTable
		otp          *otpTable
		notification *notificationTable
	}

	accountTable struct {
		sync.RWMutex
		table   map[int]*account.Account
		pkCount int
	}

	otpTable struct {
		sync.RWMutex
		table map[string]*otp.Challenge
	}

	notificationTable struct {
		sync.RWMutex
		table   map[int]*approval.Notification
		pkCount int
	}
)

func Open() (*DB, error) {
	db := &DB{
		account:      &accountTable{table: make(map[int]*account.Account)},
		otp:          &otpTable{table: make(map[string]*otp.Challenge)},
		notification: &notificationTable{table: make(map[int]*approval.Notification)},
	}
	return db, nil
}

package ledger

import (
	"github.com/artcommission/anchor/src/utils/logger"

	"github.com/sirupsen/logrus"
)

// Transforms all resty logs to debug
type Logger struct {
	log *logrus.Entry
}

func NewLogger() (self *Logger) {
	self = new(Logger)
	self.log = logger.NewSublogger("relayer-resty")
	return
}

func (self *Logger) Errorf(format string, v ...interface{}) {
	self.log.Debugf(format, v...)
}

func (self *Logger) Warnf(format string, v ...interface{}) {
	self.log.Debugf(format, v...)
}

func (self *Logger) Debugf(format string, v ...interface{}) {
	self.log.Tracef(format, v...)
}

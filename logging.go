package netbpfload

import "github.com/sirupsen/logrus"

// NewLogger returns a logrus logger preconfigured the way this loader
// wants its fields ordered: JSON disabled (boot logs go to a line-
// oriented console/kmsg sink), level controlled by the caller.
func NewLogger(level logrus.Level) *logrus.Logger {
	log := logrus.New()
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	return log
}

// dumpVerifierLog splits a verifier log buffer on newlines and emits
// each line as its own Warn entry, matching the per-line ALOGW dump
// NetBpfLoad.cpp does on program load failure.
func dumpVerifierLog(log *logrus.Entry, raw []byte) {
	line := make([]byte, 0, 256)
	for _, b := range raw {
		if b == 0 {
			break
		}
		if b == '\n' {
			log.Warn(string(line))
			line = line[:0]
			continue
		}
		line = append(line, b)
	}
	if len(line) > 0 {
		log.Warn(string(line))
	}
}

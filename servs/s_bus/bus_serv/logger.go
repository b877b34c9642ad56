package bus_serv

import "github.com/rs/zerolog"

// natsLogger routes the embedded server's logs into zerolog.
type natsLogger struct {
	log zerolog.Logger
}

func (l natsLogger) Noticef(format string, v ...interface{}) { l.log.Info().Msgf(format, v...) }
func (l natsLogger) Warnf(format string, v ...interface{})   { l.log.Warn().Msgf(format, v...) }
func (l natsLogger) Fatalf(format string, v ...interface{})  { l.log.Error().Msgf(format, v...) }
func (l natsLogger) Errorf(format string, v ...interface{})  { l.log.Error().Msgf(format, v...) }
func (l natsLogger) Debugf(format string, v ...interface{})  { l.log.Debug().Msgf(format, v...) }
func (l natsLogger) Tracef(format string, v ...interface{})  { l.log.Trace().Msgf(format, v...) }

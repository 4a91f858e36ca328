// Package notifications delivers ownership events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and degrades to a no-op when no topic is set. Events cover
// duplicate and similar detections (sent to alert the original owner when
// their content is resubmitted), new registrations, and errors. Each event can
// be toggled in config, and identical alerts inside the dedup window are
// dropped so a file dropped into the inbox repeatedly does not spam the topic.
package notifications

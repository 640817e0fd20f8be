// Copyright 2022 VMware, Inc. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package pluginmanager

import (
	"sort"
	"strings"
)

// topicOf returns the colon-prefix of id up to (not including) its last
// colon, or "" for a root command (spec section 3's CommandRecord.topic).
func topicOf(id string) string {
	i := strings.LastIndex(id, ":")
	if i < 0 {
		return ""
	}
	return id[:i]
}

// synthesizeTopics derives TopicRecords implied by commands' own topic
// prefixes, for providers (like BuiltinProvider) that don't declare topics
// explicitly up front.
func synthesizeTopics(commands []CommandRecord) []TopicRecord {
	seen := map[string]*TopicRecord{}
	var order []string
	for _, c := range commands {
		t := topicOf(c.ID)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; !ok {
			seen[t] = &TopicRecord{Name: t}
			order = append(order, t)
		}
		seen[t].CommandIDs = append(seen[t].CommandIDs, c.ID)
	}
	topics := make([]TopicRecord, 0, len(order))
	for _, name := range order {
		topics = append(topics, *seen[name])
	}
	return topics
}

// mergeTopic unions two topic records' commandIDs and prefers the later
// (higher precedence) record's descriptive metadata on conflict, per spec
// section 4.7's init protocol merge rule.
func mergeTopic(base, incoming TopicRecord) TopicRecord {
	ids := map[string]bool{}
	for _, id := range base.CommandIDs {
		ids[id] = true
	}
	for _, id := range incoming.CommandIDs {
		ids[id] = true
	}

	merged := incoming
	if incoming.Description == "" {
		merged.Description = base.Description
	}
	merged.CommandIDs = sortedKeys(ids)
	return merged
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		if k == "" {
			continue
		}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

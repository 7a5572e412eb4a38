// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - Single query command handler for ragclient.
//
// Command: ask [question]
// Short:   Ask a single question
// Aliases: q
//
// Examples:
//   ragclient ask "What is the refund policy?"
//   ragclient ask --json "Who owns the on-call rota?"
//   echo "What is X?" | ragclient ask
//
// The question and its answer are appended to the conversation log like
// any chat turn.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/jeranaias/ragclient/internal/conversation"
	"github.com/jeranaias/ragclient/internal/model"
)

// HandleAsk handles the "ask" command.
func HandleAsk(args Args) error {
	question := strings.TrimSpace(args.Query)
	if question == "" && !IsTTY() {
		text, err := readLimited(os.Stdin, "stdin")
		if err != nil {
			return err
		}
		question = strings.TrimSpace(text)
	}
	if question == "" {
		return errUsage("ask requires a question")
	}

	sess, cleanup, err := OpenSession(args)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := signalContext()
	defer cancel()

	outcome := sess.Conversation.Submit(ctx, question)
	switch outcome {
	case conversation.OutcomeRejected:
		return fmt.Errorf("question was not sent: another query is pending")
	case conversation.OutcomeDiscarded:
		return fmt.Errorf("query interrupted")
	}

	msgs := sess.Conversation.Messages()
	reply := msgs[len(msgs)-1]

	if args.JSON {
		data := AskData{
			Question: question,
			Answer:   reply.Text,
			IsError:  reply.IsError,
			Sources:  reply.Sources,
			Metrics:  reply.Metrics,
		}
		if data.Sources == nil {
			data.Sources = []model.Source{}
		}
		NewJSONResponse("ask", data).Print()
	} else {
		printReply(NewRenderer(sess.Config.UI, GetTerminalWidth()), reply, args.Quiet)
	}

	if outcome == conversation.OutcomeFailed {
		return &silentError{reason: reply.Text}
	}
	return nil
}

// printReply prints an answer. Quiet mode prints only the answer body.
func printReply(r *Renderer, reply model.Message, quiet bool) {
	fmt.Println(r.Answer(reply))
	if quiet {
		return
	}
	if s := r.Sources(reply); s != "" {
		fmt.Println()
		fmt.Println(s)
	}
	if m := r.Metrics(reply); m != "" {
		fmt.Println()
		fmt.Println(m)
	}
}

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MrWong99/pictalk/internal/dialogue"
	"github.com/MrWong99/pictalk/pkg/memory"
	"github.com/MrWong99/pictalk/pkg/provider/stt"
)

// chatService is the part of the application the chat loop drives.
type chatService interface {
	Turn(ctx context.Context, req dialogue.Request) dialogue.Response
	TurnAudio(ctx context.Context, req dialogue.Request, audio stt.Audio) (dialogue.Response, error)
	StartGame(ctx context.Context, user, category string) dialogue.Response
	StartDrill(ctx context.Context, user, category string) dialogue.Response
	Progress(ctx context.Context, user string) (memory.Analytics, error)
	Logout(user string)
}

const chatHelp = `Escribe una frase y pulsa Enter. Comandos:
  :jugar [categoria]     empieza un juego de adivinar
  :practicar [categoria] empieza una práctica
  :audio <archivo>       envía una grabación WAV o PCM
  :progreso              muestra tu progreso
  :salir                 termina el ejercicio actual
  :ayuda                 muestra esta ayuda
  :q                     cierra el chat`

func newChatCmd(opts *rootOptions) *cobra.Command {
	var (
		user string
		role string
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to pictalk from the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := dialogue.Role(role)
			switch r {
			case dialogue.RoleStudent, dialogue.RoleChild, dialogue.RoleTherapist, dialogue.RoleTeacher:
			default:
				return fmt.Errorf("invalid --role %q", role)
			}
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := openApp(ctx, cfg, nil)
			if err != nil {
				return err
			}
			defer func() { _ = a.Shutdown(context.Background()) }()

			return runChat(ctx, a, user, r, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "terminal", "user name the conversation is recorded under")
	cmd.Flags().StringVar(&role, "role", string(dialogue.RoleStudent), "speaker role (student, child, therapist, teacher)")
	return cmd
}

// runChat reads one utterance or command per line from in until EOF, ":q"
// or ctx ends.
func runChat(ctx context.Context, svc chatService, user string, role dialogue.Role, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, chatHelp)
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		if !strings.HasPrefix(line, ":") {
			printResponse(out, svc.Turn(ctx, dialogue.Request{User: user, Role: role, Text: line}))
			continue
		}

		name, arg, _ := strings.Cut(line[1:], " ")
		arg = strings.TrimSpace(arg)
		switch name {
		case "q", "quit":
			return nil
		case "ayuda", "help":
			fmt.Fprintln(out, chatHelp)
		case "jugar":
			printResponse(out, svc.StartGame(ctx, user, arg))
		case "practicar":
			printResponse(out, svc.StartDrill(ctx, user, arg))
		case "salir":
			svc.Logout(user)
			fmt.Fprintln(out, "Ejercicio terminado.")
		case "progreso":
			stats, err := svc.Progress(ctx, user)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}
			printProgress(out, stats)
		case "audio":
			audio, err := readAudioFile(arg)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}
			resp, err := svc.TurnAudio(ctx, dialogue.Request{User: user, Role: role}, audio)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}
			printResponse(out, resp)
		default:
			fmt.Fprintf(out, "comando desconocido %q, escribe :ayuda\n", name)
		}
	}
}

// readAudioFile loads a recording; raw PCM is assumed to be 16 kHz mono.
func readAudioFile(path string) (stt.Audio, error) {
	if path == "" {
		return stt.Audio{}, errors.New("usage: :audio <file>")
	}
	format := stt.FormatForFile(path)
	if format == "" {
		return stt.Audio{}, fmt.Errorf("unsupported audio file %q (use .wav, .pcm or .raw)", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return stt.Audio{}, err
	}
	audio := stt.Audio{Data: data, Format: format}
	if format == stt.FormatPCM16 {
		audio.SampleRate = stt.DefaultSampleRate
		audio.Channels = stt.DefaultChannels
	}
	return audio, nil
}

func printResponse(out io.Writer, resp dialogue.Response) {
	fmt.Fprintln(out, resp.Reply)
	for _, w := range resp.Words {
		if w.Path != "" {
			fmt.Fprintf(out, "  %s → %s\n", w.Word, w.Path)
		}
	}
	if len(resp.Suggestions) > 0 {
		kw := make([]string, len(resp.Suggestions))
		for i, s := range resp.Suggestions {
			kw[i] = s.Keyword
		}
		fmt.Fprintf(out, "  sugerencias: %s\n", strings.Join(kw, ", "))
	}
	fmt.Fprintf(out, "  [%s", resp.Strategy)
	if resp.Intent != "" {
		fmt.Fprintf(out, " · %s %.2f · %s %.2f", resp.Intent, resp.IntentConfidence, resp.Emotion, resp.EmotionConfidence)
	}
	fmt.Fprintln(out, "]")
}

func printProgress(out io.Writer, stats memory.Analytics) {
	fmt.Fprintf(out, "interacciones: %d, palabras distintas: %d, palabras por frase: %.1f\n",
		stats.Interactions, stats.UniqueWords, stats.AvgWords)
	for _, c := range stats.CommonCategories {
		fmt.Fprintf(out, "  %s (%d)\n", c.Word, c.Count)
	}
}

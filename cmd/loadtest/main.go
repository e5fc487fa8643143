package main

import (
	"context"
	"crypto/rand"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ledgerchat/channelengine/internal/channel"
	"github.com/ledgerchat/channelengine/internal/cipher"
	"github.com/ledgerchat/channelengine/internal/group"
	"github.com/ledgerchat/channelengine/internal/ledgerstore/redisledger"
)

// loadtest drives a fixed-size channel group with concurrent senders and
// a single drain-to-empty receiver against a real ledger backend, then
// reports the send rate and the number of chunks drained.
func main() {
	var (
		redisAddr  = flag.String("redis-addr", "localhost:6379", "Redis address backing the ledger store")
		duration   = flag.Duration("duration", 30*time.Second, "Test duration")
		workers    = flag.Int("workers", 5, "Number of concurrent sender goroutines")
		qps        = flag.Int("qps", 25, "Sends per second per worker")
		payloadLen = flag.Int("payload-size", 512, "Plaintext message size in bytes")
		members    = flag.Int("members", 2, "Number of channel members")
		verbose    = flag.Bool("verbose", false, "Enable debug logging")
	)
	flag.Parse()

	logger := logrus.New()
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	if *members < 1 {
		log.Fatal("members must be >= 1")
	}

	client := redis.NewClient(&redis.Options{Addr: *redisAddr})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to reach redis at %s: %v", *redisAddr, err)
	}
	ledger := redisledger.New(client)

	ids := make([]channel.CorrespondentID, *members)
	for i := range ids {
		if _, err := rand.Read(ids[i][:]); err != nil {
			log.Fatalf("failed to generate correspondent id: %v", err)
		}
	}

	var sharedSecret [32]byte
	if _, err := rand.Read(sharedSecret[:]); err != nil {
		log.Fatalf("failed to generate shared secret: %v", err)
	}

	aead, err := cipher.Select(sharedSecret, cipher.HardwareConfig{EnableAESNI: true, EnableARMv8AES: true})
	if err != nil {
		log.Fatalf("failed to select cipher: %v", err)
	}
	logger.WithField("hardware", cipher.Info(cipher.HardwareConfig{EnableAESNI: true, EnableARMv8AES: true})).Info("cipher selected")

	senderGroup, err := group.New(group.Config{
		Ledger:       ledger,
		Cipher:       aead,
		SelfID:       ids[0],
		Others:       ids[1:],
		SharedSecret: sharedSecret,
		Context:      []byte("loadtest"),
	})
	if err != nil {
		log.Fatalf("failed to build sender group: %v", err)
	}

	payload := make([]byte, *payloadLen)
	if _, err := rand.Read(payload); err != nil {
		log.Fatalf("failed to generate payload: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received shutdown signal, stopping load test")
		cancel()
	}()

	var sent, sendErrors int64
	var wg sync.WaitGroup
	testCtx, testCancel := context.WithTimeout(ctx, *duration)
	defer testCancel()

	start := time.Now()
	for w := 0; w < *workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticker := time.NewTicker(time.Second / time.Duration(max(*qps, 1)))
			defer ticker.Stop()
			for {
				select {
				case <-testCtx.Done():
					return
				case <-ticker.C:
					if err := senderGroup.Send(testCtx, payload); err != nil {
						atomic.AddInt64(&sendErrors, 1)
						continue
					}
					atomic.AddInt64(&sent, 1)
				}
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	receiverGroup, err := group.New(group.Config{
		Ledger:       ledger,
		Cipher:       aead,
		SelfID:       ids[1%len(ids)],
		Others:       append([]channel.CorrespondentID{ids[0]}, ids[min(2, len(ids)):]...),
		SharedSecret: sharedSecret,
		Context:      []byte("loadtest"),
	})
	if err != nil {
		log.Fatalf("failed to build receiver group: %v", err)
	}

	senderIndex, ok := receiverGroup.CorrespondentIndex(ids[0])
	if !ok {
		log.Fatalf("sender id missing from receiver's member set")
	}

	received := 0
	for {
		msg, ok, err := receiverGroup.ReceiveNextFor(ctx, senderIndex)
		if err != nil {
			logger.WithError(err).Warn("receive failed during drain")
			break
		}
		if !ok {
			break
		}
		_ = msg
		received++
	}

	fmt.Println("--- Channel Engine Load Test ---")
	fmt.Printf("duration:       %s\n", elapsed)
	fmt.Printf("workers:        %d\n", *workers)
	fmt.Printf("sent:           %d (%.1f/s)\n", sent, float64(sent)/elapsed.Seconds())
	fmt.Printf("send errors:    %d\n", sendErrors)
	fmt.Printf("drained chunks: %d\n", received)

	if sendErrors > 0 {
		fmt.Println("⚠️  send errors observed during load test")
		os.Exit(1)
	}
	fmt.Println("✅ load test passed")
}

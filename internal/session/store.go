package session

import (
	"crypto/rand"
	"crypto/sha256"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/mongo/mongodriver"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	// DatabaseName はセッションを保存するデータベース名です。
	DatabaseName = "sessions"
	// CollectionName はセッションを保存するコレクション名です。
	CollectionName = "sessions"
)

// Keys はクッキーの署名鍵と暗号化鍵を組み立てます。
// signSecret が空のときは起動ごとのランダム鍵を使い、generated=true を返します。
// encryptSecret は AES-256 の鍵長にそろえるため SHA-256 で伸長します。
func Keys(signSecret, encryptSecret string) (keyPairs [][]byte, generated bool, err error) {
	hashKey := []byte(signSecret)
	if signSecret == "" {
		hashKey = make([]byte, 64)
		if _, err := rand.Read(hashKey); err != nil {
			return nil, false, err
		}
		generated = true
	}
	if encryptSecret == "" {
		return [][]byte{hashKey}, generated, nil
	}
	blockKey := sha256.Sum256([]byte(encryptSecret))
	return [][]byte{hashKey, blockKey[:]}, generated, nil
}

// NewMongoStore は MongoDB にセッションを保存するストアを作成します。
// 有効期限切れのドキュメントは TTL インデックスで自動削除されます。
func NewMongoStore(client *mongo.Client, cfg Config, keyPairs ...[]byte) sessions.Store {
	coll := client.Database(DatabaseName).Collection(CollectionName)
	store := mongodriver.NewStore(coll, int(cfg.MaxAge.Seconds()), true, keyPairs...)
	store.Options(cfg.DefaultOptions())
	return store
}

package db

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/babylonlabs-io/tip-ledger/internal/db/model"
	"github.com/babylonlabs-io/tip-ledger/internal/ledger"
)

func (db *Database) CreditBalance(ctx context.Context, addr common.Address, amount math.Uint) error {
	current, err := db.GetBalance(ctx, addr)
	if err != nil {
		return err
	}

	sum := new(big.Int).Add(current.BigInt(), amount.BigInt())
	if sum.BitLen() > ledger.MaxBitLen {
		return fmt.Errorf("balance of %s: %w", addr.Hex(), ledger.ErrOverflow)
	}

	filter := bson.M{"_id": addr.Hex()}
	update := bson.M{"$set": bson.M{"balance": math.NewUintFromBigInt(sum).String()}}
	opts := options.Update().SetUpsert(true)

	_, err = db.collection(model.AccountBalancesCollection).UpdateOne(ctx, filter, update, opts)
	return err
}

func (db *Database) GetBalance(ctx context.Context, addr common.Address) (math.Uint, error) {
	var doc model.AccountBalanceDocument
	err := db.collection(model.AccountBalancesCollection).
		FindOne(ctx, bson.M{"_id": addr.Hex()}).
		Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return math.ZeroUint(), nil
		}
		return math.Uint{}, err
	}

	return ledger.ParseAmount(doc.Balance)
}
